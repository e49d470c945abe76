package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

func TestRevealScoresCorrectAnswersOnce(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()
	q1 := createQuiz(t, service, domain.SelectionB, 1)

	alice := login(t, service, "Alice")
	bob := login(t, service, "Bob")

	mustApply(t, service, app.StartCommand(q1.ID))
	mustSubmit(t, service, alice.ID, q1.ID, domain.SelectionB)
	mustSubmit(t, service, bob.ID, q1.ID, domain.SelectionA)
	mustApply(t, service, app.RevealCommand(true))

	responses, err := service.ListResponses(ctx)
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	for _, r := range responses {
		if r.UserName == "Alice" && !r.IsCorrect {
			t.Fatalf("expected Alice correct")
		}
		if r.UserName == "Bob" && r.IsCorrect {
			t.Fatalf("expected Bob incorrect")
		}
	}
	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Alice", Score: 1}, {Name: "Bob", Score: 0}})

	if !rec.has(domain.EventScoreChanged) {
		t.Fatalf("expected score-changed after reveal, got %v", rec.kinds())
	}

	mustApply(t, service, app.StopCommand())
	mustApply(t, service, app.StartCommand(q1.ID))
	mustApply(t, service, app.RevealCommand(true))

	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Alice", Score: 1}, {Name: "Bob", Score: 0}})
}

func TestRevealToggleNeverCreditsTwice(t *testing.T) {
	service, _ := newTestService()
	q := createQuiz(t, service, domain.SelectionC, 1)
	alice := login(t, service, "Alice")

	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionC)

	for i := 0; i < 4; i++ {
		mustApply(t, service, app.RevealCommand(true))
		mustApply(t, service, app.RevealCommand(true))
		mustApply(t, service, app.RevealCommand(false))
	}
	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Alice", Score: 1}})
}

func TestAnswerFixedAfterHideIsCreditedOnNextReveal(t *testing.T) {
	service, _ := newTestService()
	q := createQuiz(t, service, domain.SelectionA, 1)
	bob := login(t, service, "Bob")

	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, bob.ID, q.ID, domain.SelectionD)
	mustApply(t, service, app.RevealCommand(true))
	mustApply(t, service, app.RevealCommand(false))
	mustSubmit(t, service, bob.ID, q.ID, domain.SelectionA)
	mustApply(t, service, app.RevealCommand(true))

	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Bob", Score: 1}})
}

func TestConcurrentRevealsCreditOnce(t *testing.T) {
	service, _ := newTestService()
	q := createQuiz(t, service, domain.SelectionB, 1)
	alice := login(t, service, "Alice")
	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionB)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = service.UpdateState(context.Background(), app.StateUpdate{CurrentQuizID: &q.ID, IsResultRevealed: true})
		}()
	}
	wg.Wait()

	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Alice", Score: 1}})
}

func TestResubmissionKeepsSingleResponse(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()
	q := createQuiz(t, service, domain.SelectionC, 1)
	alice := login(t, service, "Alice")
	mustApply(t, service, app.StartCommand(q.ID))

	first := mustSubmit(t, service, alice.ID, q.ID, domain.SelectionA)
	second := mustSubmit(t, service, alice.ID, q.ID, domain.SelectionC)

	if first.ID != second.ID {
		t.Fatalf("expected the same row to be updated, got ids %d and %d", first.ID, second.ID)
	}
	if !second.IsCorrect || first.IsCorrect {
		t.Fatalf("expected correctness recomputed, got first=%v second=%v", first.IsCorrect, second.IsCorrect)
	}

	responses, err := service.ListResponses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(responses) != 1 || responses[0].Selection != domain.SelectionC {
		t.Fatalf("expected one response with C, got %+v", responses)
	}
	if rec.count(domain.EventResponseChanged) != 2 {
		t.Fatalf("expected two response-changed events, got %v", rec.kinds())
	}
}

func TestSubmitAfterRevealConflicts(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()
	q := createQuiz(t, service, domain.SelectionB, 1)
	alice := login(t, service, "Alice")
	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionA)
	mustApply(t, service, app.RevealCommand(true))

	before := rec.count(domain.EventResponseChanged)
	_, err := service.SubmitResponse(ctx, alice.ID, q.ID, domain.SelectionB)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	responses, _ := service.ListResponses(ctx)
	if len(responses) != 1 || responses[0].Selection != domain.SelectionA {
		t.Fatalf("expected ledger unchanged, got %+v", responses)
	}
	if rec.count(domain.EventResponseChanged) != before {
		t.Fatalf("expected no notification for rejected submission")
	}
}

func TestSubmitValidatesInput(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	alice := login(t, service, "Alice")

	if _, err := service.SubmitResponse(ctx, alice.ID, 99, domain.SelectionA); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown quiz, got %v", err)
	}
	if _, err := service.SubmitResponse(ctx, alice.ID, 1, domain.Selection("E")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStartingAnotherQuestionClearsTimer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	service, _ := newTestService(app.WithClock(func() time.Time { return now }))
	a := createQuiz(t, service, domain.SelectionA, 1)
	b := createQuiz(t, service, domain.SelectionB, 2)

	mustApply(t, service, app.StartCommand(a.ID))
	view := mustApply(t, service, app.TimerCommand())
	if view.TimerStartedAt == nil || !view.TimerStartedAt.Equal(now) {
		t.Fatalf("expected timer started at %v, got %v", now, view.TimerStartedAt)
	}
	now = now.Add(5 * time.Second)
	current, err := service.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if current.RemainingSeconds == nil || *current.RemainingSeconds != domain.DefaultTimeLimit-5 {
		t.Fatalf("expected %d seconds left, got %v", domain.DefaultTimeLimit-5, current.RemainingSeconds)
	}

	view, err = service.UpdateState(ctx, app.StateUpdate{CurrentQuizID: &b.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if view.TimerStartedAt != nil || !view.IsCurrent(b.ID) || view.IsResultRevealed {
		t.Fatalf("expected fresh hidden state for B, got %+v", view.SessionState)
	}
}

func TestStartUnknownQuestionFails(t *testing.T) {
	service, rec := newTestService()
	if _, err := service.Apply(context.Background(), app.StartCommand(404)); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if rec.has(domain.EventStateChanged) {
		t.Fatalf("expected no state notification after failed start")
	}
}

func TestRevealOfDeletedQuestionSkipsScoring(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	q := createQuiz(t, service, domain.SelectionA, 1)
	alice := login(t, service, "Alice")
	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionA)

	if err := service.DeleteQuiz(ctx, q.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	view := mustApply(t, service, app.RevealCommand(true))
	if !view.IsResultRevealed {
		t.Fatalf("expected reveal to be recorded")
	}
	assertBoard(t, service, []domain.LeaderboardEntry{{Name: "Alice", Score: 0}})
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.WithAdminPolicy(app.AdminPolicy{Names: []string{"host"}}))
	q := createQuiz(t, service, domain.SelectionA, 1)

	host := login(t, service, "host")
	carol := login(t, service, "Carol")
	bob := login(t, service, "Bob")
	alice := login(t, service, "Alice")
	if !host.IsAdmin {
		t.Fatalf("expected host to be admin")
	}

	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, carol.ID, q.ID, domain.SelectionA)
	mustSubmit(t, service, bob.ID, q.ID, domain.SelectionA)
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionC)
	mustSubmit(t, service, host.ID, q.ID, domain.SelectionA)
	mustApply(t, service, app.RevealCommand(true))

	board, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{"Bob", "Carol", "Alice"}
	if len(board) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), board)
	}
	for i, name := range want {
		if board[i].Name != name {
			t.Fatalf("position %d: expected %s, got %+v", i, name, board)
		}
	}
}

func TestLoginIsIdempotentByName(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()

	first, token1, err := service.Login(ctx, "Alice", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, token2, err := service.Login(ctx, " Alice ", "")
	if err != nil {
		t.Fatalf("login again: %v", err)
	}
	if first.ID != second.ID || token1 == token2 {
		t.Fatalf("expected same user with new session, got %d/%d", first.ID, second.ID)
	}
	if rec.count(domain.EventUserJoined) != 2 {
		t.Fatalf("expected user-joined on every login, got %v", rec.kinds())
	}

	me, err := service.Me(ctx, token1)
	if err != nil || me.ID != first.ID {
		t.Fatalf("expected me to resolve, got %+v (%v)", me, err)
	}
	if err := service.Logout(ctx, token1); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := service.Me(ctx, token1); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated after logout, got %v", err)
	}
	if _, _, err := service.Login(ctx, "  ", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
}

func TestAdminPasscode(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(app.WithAdminPolicy(app.AdminPolicy{Names: []string{"admin"}, Passcode: "s3cret"}))

	if _, _, err := service.Login(ctx, "admin", "wrong"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected rejection, got %v", err)
	}
	user, _, err := service.Login(ctx, "admin", "s3cret")
	if err != nil || !user.IsAdmin {
		t.Fatalf("expected admin login, got %+v (%v)", user, err)
	}
	other, _, err := service.Login(ctx, "Admin", "")
	if err != nil || other.IsAdmin {
		t.Fatalf("expected differently cased name to be a participant, got %+v (%v)", other, err)
	}
}

func TestQuizCatalogCRUD(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()

	b := createQuiz(t, service, domain.SelectionA, 5)
	a := createQuiz(t, service, domain.SelectionA, 1)
	c := createQuiz(t, service, domain.SelectionA, 5)

	quizzes, err := service.ListQuizzes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if quizzes[0].ID != a.ID || quizzes[1].ID != b.ID || quizzes[2].ID != c.ID {
		t.Fatalf("expected order then id sorting, got %+v", quizzes)
	}
	if quizzes[0].TimeLimit != domain.DefaultTimeLimit {
		t.Fatalf("expected default time limit, got %d", quizzes[0].TimeLimit)
	}

	text := "Edited?"
	order := 0
	updated, err := service.UpdateQuiz(ctx, c.ID, domain.QuizPatch{Question: &text, Order: &order})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Question != text || updated.OptionA != c.OptionA {
		t.Fatalf("expected partial update, got %+v", updated)
	}
	quizzes, _ = service.ListQuizzes(ctx)
	if quizzes[0].ID != c.ID {
		t.Fatalf("expected edited quiz first after reorder, got %+v", quizzes)
	}

	empty := ""
	if _, err := service.UpdateQuiz(ctx, c.ID, domain.QuizPatch{OptionB: &empty}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if err := service.DeleteQuiz(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := service.DeleteQuiz(ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	quizzes, _ = service.ListQuizzes(ctx)
	if len(quizzes) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(quizzes))
	}
	if rec.count(domain.EventQuizListChanged) != 5 {
		t.Fatalf("expected 5 quiz-list-changed events, got %v", rec.kinds())
	}
	last := rec.last(domain.EventQuizListChanged).(domain.QuizListChanged)
	if last.Quiz != nil {
		t.Fatalf("expected delete event without payload")
	}
}

func TestCreateQuizValidation(t *testing.T) {
	service, _ := newTestService()
	_, err := service.CreateQuiz(context.Background(), domain.QuizInput{Question: "Missing options", CorrectAnswer: domain.SelectionA})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	service, rec := newTestService()
	q := createQuiz(t, service, domain.SelectionA, 1)
	alice, aliceToken, err := service.Login(ctx, "Alice", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	mustApply(t, service, app.StartCommand(q.ID))
	mustSubmit(t, service, alice.ID, q.ID, domain.SelectionA)

	if err := service.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	mallory := login(t, service, "Mallory")
	if mallory.ID == alice.ID {
		t.Fatalf("expected a fresh id after reset, got %d again", mallory.ID)
	}
	if _, err := service.Me(ctx, aliceToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected old session to be unauthenticated, got %v", err)
	}
	quizzes, _ := service.ListQuizzes(ctx)
	responses, _ := service.ListResponses(ctx)
	state, _ := service.State(ctx)
	if len(quizzes) != 0 || len(responses) != 0 || state.Active() {
		t.Fatalf("expected empty world after reset")
	}

	kinds := rec.kinds()
	tail := kinds[len(kinds)-4 : len(kinds)-1]
	want := []domain.EventKind{domain.EventQuizListChanged, domain.EventStateChanged, domain.EventScoreChanged}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("expected reset events %v, got %v", want, tail)
		}
	}
}

func TestSeedOnlyFillsEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	added, err := service.Seed(ctx, app.DemoQuizzes())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if added != len(app.DemoQuizzes()) {
		t.Fatalf("expected %d seeded, got %d", len(app.DemoQuizzes()), added)
	}
	added, err = service.Seed(ctx, app.DemoQuizzes())
	if err != nil || added != 0 {
		t.Fatalf("expected second seed to be a no-op, got %d (%v)", added, err)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind()
	}
	return out
}

func (r *recorder) count(kind domain.EventKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recorder) has(kind domain.EventKind) bool {
	return r.count(kind) > 0
}

func (r *recorder) last(kind domain.EventKind) domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind() == kind {
			return r.events[i]
		}
	}
	return nil
}

func newTestService(opts ...app.Option) (*app.QuizService, *recorder) {
	store := memory.NewStore()
	rec := &recorder{}
	service := app.NewQuizService(
		store,
		memory.NewQuizCatalog(store, time.Minute),
		memory.NewSessionStore(time.Hour),
		rec,
		opts...,
	)
	return service, rec
}

func createQuiz(t *testing.T, service *app.QuizService, correct domain.Selection, order int) domain.Quiz {
	t.Helper()
	quiz, err := service.CreateQuiz(context.Background(), domain.QuizInput{
		Question:      "Pick one",
		OptionA:       "first",
		OptionB:       "second",
		OptionC:       "third",
		OptionD:       "fourth",
		CorrectAnswer: correct,
		Order:         order,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func login(t *testing.T, service *app.QuizService, name string) domain.User {
	t.Helper()
	user, _, err := service.Login(context.Background(), name, "")
	if err != nil {
		t.Fatalf("login %s: %v", name, err)
	}
	return user
}

func mustApply(t *testing.T, service *app.QuizService, cmd app.Command) app.StateView {
	t.Helper()
	view, err := service.Apply(context.Background(), cmd)
	if err != nil {
		t.Fatalf("apply %s: %v", cmd.Kind, err)
	}
	return view
}

func mustSubmit(t *testing.T, service *app.QuizService, userID, quizID int64, sel domain.Selection) domain.Response {
	t.Helper()
	resp, err := service.SubmitResponse(context.Background(), userID, quizID, sel)
	if err != nil {
		t.Fatalf("submit %s: %v", sel, err)
	}
	return resp
}

func assertBoard(t *testing.T, service *app.QuizService, want []domain.LeaderboardEntry) {
	t.Helper()
	board, err := service.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), board)
	}
	for i := range want {
		if board[i].Name != want[i].Name || board[i].Score != want[i].Score {
			t.Fatalf("entry %d: expected %s(%d), got %+v", i, want[i].Name, want[i].Score, board)
		}
	}
}
