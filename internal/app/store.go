package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// Repository is the Record Store surface the core reads and writes through.
// Lookups of missing rows return domain.ErrUserNotFound / domain.ErrQuizNotFound.
type Repository interface {
	UserByID(ctx context.Context, id int64) (domain.User, error)
	UserByName(ctx context.Context, name string) (domain.User, error)
	CreateUser(ctx context.Context, name string, isAdmin bool) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	AddScore(ctx context.Context, userID int64, delta int) error

	// ListQuizzes returns quizzes sorted by Order, ties by ID.
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	QuizByID(ctx context.Context, id int64) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, in domain.QuizInput) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error

	ListResponses(ctx context.Context) ([]domain.ResponseView, error)
	ResponsesForQuiz(ctx context.Context, quizID int64) ([]domain.Response, error)
	// ResponseFor reports whether userID already answered quizID.
	ResponseFor(ctx context.Context, userID, quizID int64) (domain.Response, bool, error)
	InsertResponse(ctx context.Context, r domain.Response) (domain.Response, error)
	UpdateResponse(ctx context.Context, r domain.Response) (domain.Response, error)

	// State returns the singleton row, creating it with defaults on first read.
	// Inside RunInTx the row stays locked until the transaction ends.
	State(ctx context.Context) (domain.SessionState, error)
	SaveState(ctx context.Context, state domain.SessionState) error

	// Reset removes every user, quiz and response and restores the default state.
	Reset(ctx context.Context) error
}

// Store is a Repository that can run a read-modify-write sequence atomically.
type Store interface {
	Repository
	RunInTx(ctx context.Context, fn func(tx Repository) error) error
}

// QuizCatalog serves the sorted quiz list, possibly from a cache.
type QuizCatalog interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	Invalidate(ctx context.Context)
}

// SessionRepository maps opaque login tokens to user ids.
type SessionRepository interface {
	Create(ctx context.Context, userID int64) (string, error)
	// Lookup returns domain.ErrSessionNotFound for unknown or expired tokens.
	Lookup(ctx context.Context, token string) (int64, error)
	Delete(ctx context.Context, token string) error
	// Clear drops every session.
	Clear(ctx context.Context) error
}

// Notifier is the fan-out sink. Publish must not block and has no failure mode.
type Notifier interface {
	Publish(e domain.Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(domain.Event) {}
