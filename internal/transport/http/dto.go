package http

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Passcode string `json:"passcode"`
}

type createQuizRequest struct {
	Question      string  `json:"question" binding:"required"`
	ImageURL      *string `json:"imageUrl"`
	OptionA       string  `json:"optionA" binding:"required"`
	OptionB       string  `json:"optionB" binding:"required"`
	OptionC       string  `json:"optionC" binding:"required"`
	OptionD       string  `json:"optionD" binding:"required"`
	CorrectAnswer string  `json:"correctAnswer" binding:"required,selection"`
	Order         int     `json:"order"`
	TimeLimit     int     `json:"timeLimit" binding:"omitempty,min=1"`
}

func (r createQuizRequest) input() domain.QuizInput {
	return domain.QuizInput{
		Question:      r.Question,
		ImageURL:      r.ImageURL,
		OptionA:       r.OptionA,
		OptionB:       r.OptionB,
		OptionC:       r.OptionC,
		OptionD:       r.OptionD,
		CorrectAnswer: selection(r.CorrectAnswer),
		Order:         r.Order,
		TimeLimit:     r.TimeLimit,
	}
}

// updateQuizRequest is partial: absent fields keep their value, an empty imageUrl clears it.
type updateQuizRequest struct {
	Question      *string `json:"question"`
	ImageURL      *string `json:"imageUrl"`
	OptionA       *string `json:"optionA"`
	OptionB       *string `json:"optionB"`
	OptionC       *string `json:"optionC"`
	OptionD       *string `json:"optionD"`
	CorrectAnswer *string `json:"correctAnswer" binding:"omitempty,selection"`
	Order         *int    `json:"order"`
	TimeLimit     *int    `json:"timeLimit" binding:"omitempty,min=1"`
}

func (r updateQuizRequest) patch() domain.QuizPatch {
	p := domain.QuizPatch{
		Question:  r.Question,
		ImageURL:  r.ImageURL,
		OptionA:   r.OptionA,
		OptionB:   r.OptionB,
		OptionC:   r.OptionC,
		OptionD:   r.OptionD,
		Order:     r.Order,
		TimeLimit: r.TimeLimit,
	}
	if r.CorrectAnswer != nil {
		sel := selection(*r.CorrectAnswer)
		p.CorrectAnswer = &sel
	}
	return p
}

// stateRequest mirrors the state document. A non-null timerStartedAt asks for the
// countdown to start; its value is ignored in favour of the server clock.
type stateRequest struct {
	CurrentQuizID    *int64     `json:"currentQuizId"`
	IsResultRevealed bool       `json:"isResultRevealed"`
	TimerStartedAt   *time.Time `json:"timerStartedAt"`
}

func (r stateRequest) update() app.StateUpdate {
	return app.StateUpdate{
		CurrentQuizID:    r.CurrentQuizID,
		IsResultRevealed: r.IsResultRevealed,
		StartTimer:       r.TimerStartedAt != nil,
	}
}

type startRequest struct {
	QuizID int64 `json:"quizId" binding:"required"`
}

type submitRequest struct {
	QuizID    int64  `json:"quizId" binding:"required"`
	Selection string `json:"selection" binding:"required,selection"`
}

// selection normalises a label the "selection" tag already accepted.
func selection(raw string) domain.Selection {
	s, _ := domain.ParseSelection(raw)
	return s
}

type successResponse struct {
	Success bool `json:"success"`
}

var registerOnce sync.Once

// registerValidators adds the "selection" tag and reports fields by their JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("selection", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseSelection(fl.Field().String())
			return err == nil
		})
	})
}
