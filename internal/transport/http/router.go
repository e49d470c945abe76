package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/notify"
)

// Options tunes the router; the zero value serves same-origin clients over plain HTTP.
type Options struct {
	// AllowedOrigins enables CORS with credentials for the listed origins.
	AllowedOrigins []string
	SecureCookies  bool
	// SessionTTL sets the cookie max-age; zero makes it a browser-session cookie.
	SessionTTL time.Duration
	// Ping is checked by /healthz when set.
	Ping func(ctx context.Context) error
}

type Handler struct {
	service  *app.QuizService
	hub      *notify.Hub
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(service *app.QuizService, hub *notify.Hub, opts Options) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(service *app.QuizService, hub *notify.Hub, opts Options) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(requestLogger())
	r.Use(recovery())
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	NewHandler(service, hub, opts).RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/ws", h.ServeWS)

	api := router.Group("/api")
	{
		api.POST("/login", h.Login)
		api.GET("/me", h.requireSession, h.Me)
		api.POST("/logout", h.Logout)

		api.GET("/quizzes", h.ListQuizzes)
		api.GET("/state", h.GetState)
		api.GET("/responses", h.ListResponses)
		api.GET("/leaderboard", h.Leaderboard)

		api.POST("/responses", h.requireSession, h.SubmitResponse)

		admin := api.Group("", h.requireSession, h.requireAdmin)
		admin.POST("/quizzes", h.CreateQuiz)
		admin.PUT("/quizzes/:id", h.UpdateQuiz)
		admin.DELETE("/quizzes/:id", h.DeleteQuiz)

		admin.POST("/state", h.UpdateState)
		admin.POST("/state/start", h.StartQuestion)
		admin.POST("/state/stop", h.command(app.StopCommand()))
		admin.POST("/state/reveal", h.command(app.RevealCommand(true)))
		admin.POST("/state/hide", h.command(app.RevealCommand(false)))
		admin.POST("/state/timer", h.command(app.TimerCommand()))

		admin.POST("/reset", h.Reset)
	}
}
