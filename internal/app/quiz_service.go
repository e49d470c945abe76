package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
)

// AdminPolicy decides which login names receive the admin flag.
type AdminPolicy struct {
	Names    []string
	Passcode string
}

func (p AdminPolicy) isAdminName(name string) bool {
	for _, n := range p.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithAdminPolicy sets the admin name list and passcode.
func WithAdminPolicy(p AdminPolicy) Option {
	return func(s *QuizService) { s.admins = p }
}

// WithClock is used by tests for deterministic timer values.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// QuizService contains the quiz use cases. Every mutation commits to the store first and
// only then publishes; a failed write publishes nothing.
type QuizService struct {
	store    Store
	catalog  QuizCatalog
	sessions SessionRepository
	notifier Notifier
	admins   AdminPolicy
	now      func() time.Time
}

func NewQuizService(store Store, catalog QuizCatalog, sessions SessionRepository, notifier Notifier, opts ...Option) *QuizService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	s := &QuizService{
		store:    store,
		catalog:  catalog,
		sessions: sessions,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login returns the user with that name, creating it on first use, and opens a session.
func (s *QuizService) Login(ctx context.Context, name, passcode string) (domain.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, "", domain.Validationf("name is required")
	}
	admin := s.admins.isAdminName(name)
	if admin && s.admins.Passcode != "" && passcode != s.admins.Passcode {
		return domain.User{}, "", fmt.Errorf("%w: invalid admin passcode", domain.ErrUnauthenticated)
	}

	var user domain.User
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		existing, err := tx.UserByName(ctx, name)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		user, err = tx.CreateUser(ctx, name, admin)
		return err
	})
	if err != nil {
		return domain.User{}, "", err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	s.notifier.Publish(domain.UserJoined{User: user})
	return user, token, nil
}

// Me resolves a session token to its user.
func (s *QuizService) Me(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	userID, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: user not found", domain.ErrUnauthenticated)
	}
	return user, err
}

// Logout destroys the session. Unknown tokens are ignored.
func (s *QuizService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// ListQuizzes returns the catalog sorted by order, then id.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.catalog.ListQuizzes(ctx)
}

func (s *QuizService) CreateQuiz(ctx context.Context, in domain.QuizInput) (domain.Quiz, error) {
	in = normaliseInput(in)
	if err := validateQuiz(quizFromInput(in)); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.store.CreateQuiz(ctx, in)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.catalog.Invalidate(ctx)
	s.notifier.Publish(domain.QuizListChanged{})
	return quiz, nil
}

// UpdateQuiz applies a partial edit. Past responses keep their correctness.
func (s *QuizService) UpdateQuiz(ctx context.Context, id int64, patch domain.QuizPatch) (domain.Quiz, error) {
	var saved domain.Quiz
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		current, err := tx.QuizByID(ctx, id)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if err := validateQuiz(next); err != nil {
			return err
		}
		saved, err = tx.SaveQuiz(ctx, next)
		return err
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	s.catalog.Invalidate(ctx)
	quiz := saved
	s.notifier.Publish(domain.QuizListChanged{Quiz: &quiz})
	return saved, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuiz(ctx, id); err != nil {
		return err
	}
	s.catalog.Invalidate(ctx)
	s.notifier.Publish(domain.QuizListChanged{})
	return nil
}

// Seed inserts quizzes only when the catalog is empty and returns how many were added.
func (s *QuizService) Seed(ctx context.Context, quizzes []domain.QuizInput) (int, error) {
	added := 0
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		existing, err := tx.ListQuizzes(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, in := range quizzes {
			in = normaliseInput(in)
			if err := validateQuiz(quizFromInput(in)); err != nil {
				return err
			}
			if _, err := tx.CreateQuiz(ctx, in); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.catalog.Invalidate(ctx)
		s.notifier.Publish(domain.QuizListChanged{})
	}
	return added, nil
}

// StateView is the session state plus the derived countdown.
type StateView struct {
	domain.SessionState
	RemainingSeconds *int `json:"remainingSeconds"`
}

// State returns the current session state, creating the default row if needed.
func (s *QuizService) State(ctx context.Context) (StateView, error) {
	state, err := s.store.State(ctx)
	if err != nil {
		return StateView{}, err
	}
	return s.view(ctx, state), nil
}

func (s *QuizService) view(ctx context.Context, state domain.SessionState) StateView {
	v := StateView{SessionState: state}
	if state.CurrentQuizID == nil || state.TimerStartedAt == nil {
		return v
	}
	quiz, err := s.store.QuizByID(ctx, *state.CurrentQuizID)
	if err != nil {
		return v
	}
	v.RemainingSeconds = state.RemainingSeconds(quiz.TimeLimit, s.now())
	return v
}

// UpdateState translates a whole-state update into one command and applies it.
func (s *QuizService) UpdateState(ctx context.Context, upd StateUpdate) (StateView, error) {
	return s.transition(ctx, func(prev domain.SessionState) (Command, bool) {
		return CommandFor(prev, upd)
	})
}

// Apply runs a single admin command against the session state.
func (s *QuizService) Apply(ctx context.Context, cmd Command) (StateView, error) {
	return s.transition(ctx, func(domain.SessionState) (Command, bool) {
		return cmd, true
	})
}

func (s *QuizService) transition(ctx context.Context, decide func(domain.SessionState) (Command, bool)) (StateView, error) {
	var (
		next     domain.SessionState
		revealed bool
	)
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		prev, err := tx.State(ctx)
		if err != nil {
			return err
		}
		next = prev
		cmd, ok := decide(prev)
		if !ok {
			return nil
		}
		if cmd.Kind == CommandStart {
			if _, err := tx.QuizByID(ctx, cmd.QuizID); err != nil {
				return err
			}
		}

		next = Transition(prev, cmd, s.now())
		if err := tx.SaveState(ctx, next); err != nil {
			return err
		}

		quizID, ok := RevealEdge(prev, next)
		if !ok {
			return nil
		}
		revealed = true
		quiz, err := tx.QuizByID(ctx, quizID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Int64("quizId", quizID).Msg("revealed question no longer exists, skipping scoring")
			return nil
		}
		if err != nil {
			return err
		}
		result, err := award(ctx, tx, quizID, quiz.CorrectAnswer)
		if err != nil {
			return err
		}
		log.Info().Int64("quizId", quizID).Int("marked", result.Marked).Int("credited", len(result.Credited)).Msg("results revealed")
		return nil
	})
	if err != nil {
		return StateView{}, err
	}

	s.notifier.Publish(domain.StateChanged{State: next})
	if revealed {
		s.publishScores(ctx)
	}
	return s.view(ctx, next), nil
}

// ListResponses returns every response with its submitter's name.
func (s *QuizService) ListResponses(ctx context.Context) ([]domain.ResponseView, error) {
	return s.store.ListResponses(ctx)
}

// SubmitResponse records or replaces a user's answer while results are hidden.
func (s *QuizService) SubmitResponse(ctx context.Context, userID, quizID int64, sel domain.Selection) (domain.Response, error) {
	if !sel.Valid() {
		return domain.Response{}, domain.ErrInvalidSelection
	}
	var stored domain.Response
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		var err error
		stored, err = submit(ctx, tx, userID, quizID, sel)
		return err
	})
	if err != nil {
		return domain.Response{}, err
	}
	s.notifier.Publish(domain.ResponseChanged{Response: stored})
	return stored, nil
}

// Leaderboard ranks non-admin users by score descending, then name ascending.
func (s *QuizService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return rank(users), nil
}

func rank(users []domain.User) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{ID: u.ID, Name: u.Name, Score: u.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}

// Reset wipes every entity, ends every login session and tells all clients to start over.
func (s *QuizService) Reset(ctx context.Context) error {
	var state domain.SessionState
	err := s.store.RunInTx(ctx, func(tx Repository) error {
		if _, err := tx.State(ctx); err != nil {
			return err
		}
		if err := tx.Reset(ctx); err != nil {
			return err
		}
		var err error
		state, err = tx.State(ctx)
		return err
	})
	if err != nil {
		return err
	}
	s.catalog.Invalidate(ctx)
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	s.notifier.Publish(domain.QuizListChanged{})
	s.notifier.Publish(domain.StateChanged{State: state})
	s.notifier.Publish(domain.ScoreChanged{Leaderboard: []domain.LeaderboardEntry{}})
	return nil
}

func (s *QuizService) publishScores(ctx context.Context) {
	board, err := s.Leaderboard(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load leaderboard for score notification")
		return
	}
	s.notifier.Publish(domain.ScoreChanged{Leaderboard: board})
}
