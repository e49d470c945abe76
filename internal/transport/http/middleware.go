package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
)

const (
	sessionCookie = "quiz_session"
	userKey       = "quiz.user"
)

// requestLogger writes one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("panic recovered")
		jsonError(c, http.StatusInternalServerError, "internal error")
	})
}

// requireSession resolves the session cookie to a user or rejects with 401.
func (h *Handler) requireSession(c *gin.Context) {
	token, _ := c.Cookie(sessionCookie)
	user, err := h.service.Me(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// requireAdmin must run after requireSession.
func (h *Handler) requireAdmin(c *gin.Context) {
	if !currentUser(c).IsAdmin {
		jsonError(c, http.StatusForbidden, domain.ErrForbidden.Error())
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) domain.User {
	user, _ := c.MustGet(userKey).(domain.User)
	return user
}
