package domain

import (
	"strings"
	"time"
)

// DefaultTimeLimit is applied to questions created without an explicit time limit.
const DefaultTimeLimit = 20

// Selection is one of the four answer labels.
type Selection string

const (
	SelectionA Selection = "A"
	SelectionB Selection = "B"
	SelectionC Selection = "C"
	SelectionD Selection = "D"
)

// ParseSelection normalises a label such as "b" or " C " into a Selection.
func ParseSelection(raw string) (Selection, error) {
	s := Selection(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidSelection
	}
	return s, nil
}

// Valid reports whether s is one of A, B, C or D.
func (s Selection) Valid() bool {
	switch s {
	case SelectionA, SelectionB, SelectionC, SelectionD:
		return true
	}
	return false
}

// User is a participant or an admin. Score only ever grows.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
	Score   int    `json:"score"`
}

// Quiz is a single multiple-choice question.
type Quiz struct {
	ID            int64     `json:"id"`
	Question      string    `json:"question"`
	ImageURL      *string   `json:"imageUrl"`
	OptionA       string    `json:"optionA"`
	OptionB       string    `json:"optionB"`
	OptionC       string    `json:"optionC"`
	OptionD       string    `json:"optionD"`
	CorrectAnswer Selection `json:"correctAnswer"`
	Order         int       `json:"order"`
	TimeLimit     int       `json:"timeLimit"`
}

// QuizInput carries the fields of a quiz being created.
type QuizInput struct {
	Question      string
	ImageURL      *string
	OptionA       string
	OptionB       string
	OptionC       string
	OptionD       string
	CorrectAnswer Selection
	Order         int
	TimeLimit     int
}

// QuizPatch is a partial update; nil fields keep their current value.
type QuizPatch struct {
	Question      *string
	ImageURL      *string
	OptionA       *string
	OptionB       *string
	OptionC       *string
	OptionD       *string
	CorrectAnswer *Selection
	Order         *int
	TimeLimit     *int
}

// Apply returns q with every non-nil field of p copied over.
func (p QuizPatch) Apply(q Quiz) Quiz {
	if p.Question != nil {
		q.Question = *p.Question
	}
	if p.ImageURL != nil {
		if *p.ImageURL == "" {
			q.ImageURL = nil
		} else {
			url := *p.ImageURL
			q.ImageURL = &url
		}
	}
	if p.OptionA != nil {
		q.OptionA = *p.OptionA
	}
	if p.OptionB != nil {
		q.OptionB = *p.OptionB
	}
	if p.OptionC != nil {
		q.OptionC = *p.OptionC
	}
	if p.OptionD != nil {
		q.OptionD = *p.OptionD
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	if p.Order != nil {
		q.Order = *p.Order
	}
	if p.TimeLimit != nil {
		q.TimeLimit = *p.TimeLimit
	}
	return q
}

// Response is one user's answer to one quiz. At most one exists per (UserID, QuizID).
// Credited records that the owner's score already includes this answer.
type Response struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	QuizID    int64     `json:"quizId"`
	Selection Selection `json:"selection"`
	IsCorrect bool      `json:"isCorrect"`
	Credited  bool      `json:"-"`
}

// ResponseView is a response joined with its submitter's display name.
type ResponseView struct {
	Response
	UserName string `json:"userName"`
}

// SessionState is the singleton "what is on screen" record.
type SessionState struct {
	CurrentQuizID    *int64     `json:"currentQuizId"`
	IsResultRevealed bool       `json:"isResultRevealed"`
	TimerStartedAt   *time.Time `json:"timerStartedAt"`
}

// Active reports whether a question is currently selected.
func (s SessionState) Active() bool {
	return s.CurrentQuizID != nil
}

// IsCurrent reports whether quizID is the active question.
func (s SessionState) IsCurrent(quizID int64) bool {
	return s.CurrentQuizID != nil && *s.CurrentQuizID == quizID
}

// RemainingSeconds derives the countdown from the timer start and the quiz time limit.
// It returns nil when no timer is running.
func (s SessionState) RemainingSeconds(timeLimit int, now time.Time) *int {
	if s.TimerStartedAt == nil || s.IsResultRevealed {
		return nil
	}
	left := timeLimit - int(now.Sub(*s.TimerStartedAt)/time.Second)
	if left < 0 {
		left = 0
	}
	return &left
}

// LeaderboardEntry is a ranked non-admin user.
type LeaderboardEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}
