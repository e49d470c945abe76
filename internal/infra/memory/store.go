package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Store is an in-process implementation of app.Store. A single mutex serialises every
// call; RunInTx holds it for the whole callback and restores a snapshot on error.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	users     map[int64]domain.User
	quizzes   map[int64]domain.Quiz
	responses map[int64]domain.Response
	state     *domain.SessionState

	nextUserID     int64
	nextQuizID     int64
	nextResponseID int64
}

func newDataset() *dataset {
	return &dataset{
		users:     make(map[int64]domain.User),
		quizzes:   make(map[int64]domain.Quiz),
		responses: make(map[int64]domain.Response),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:          make(map[int64]domain.User, len(d.users)),
		quizzes:        make(map[int64]domain.Quiz, len(d.quizzes)),
		responses:      make(map[int64]domain.Response, len(d.responses)),
		nextUserID:     d.nextUserID,
		nextQuizID:     d.nextQuizID,
		nextResponseID: d.nextResponseID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range d.responses {
		c.responses[k] = v
	}
	if d.state != nil {
		st := *d.state
		c.state = &st
	}
	return c
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

var _ app.Store = (*Store)(nil)

// RunInTx runs fn with exclusive access to the dataset.
func (s *Store) RunInTx(ctx context.Context, fn func(tx app.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&repo{d: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) locked() (*repo, func()) {
	s.mu.Lock()
	return &repo{d: s.data}, s.mu.Unlock
}

func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.UserByID(ctx, id)
}

func (s *Store) UserByName(ctx context.Context, name string) (domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.UserByName(ctx, name)
}

func (s *Store) CreateUser(ctx context.Context, name string, isAdmin bool) (domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateUser(ctx, name, isAdmin)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListUsers(ctx)
}

func (s *Store) AddScore(ctx context.Context, userID int64, delta int) error {
	r, unlock := s.locked()
	defer unlock()
	return r.AddScore(ctx, userID, delta)
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListQuizzes(ctx)
}

func (s *Store) QuizByID(ctx context.Context, id int64) (domain.Quiz, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.QuizByID(ctx, id)
}

func (s *Store) CreateQuiz(ctx context.Context, in domain.QuizInput) (domain.Quiz, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.CreateQuiz(ctx, in)
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.SaveQuiz(ctx, quiz)
}

func (s *Store) DeleteQuiz(ctx context.Context, id int64) error {
	r, unlock := s.locked()
	defer unlock()
	return r.DeleteQuiz(ctx, id)
}

func (s *Store) ListResponses(ctx context.Context) ([]domain.ResponseView, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ListResponses(ctx)
}

func (s *Store) ResponsesForQuiz(ctx context.Context, quizID int64) ([]domain.Response, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ResponsesForQuiz(ctx, quizID)
}

func (s *Store) ResponseFor(ctx context.Context, userID, quizID int64) (domain.Response, bool, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.ResponseFor(ctx, userID, quizID)
}

func (s *Store) InsertResponse(ctx context.Context, resp domain.Response) (domain.Response, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.InsertResponse(ctx, resp)
}

func (s *Store) UpdateResponse(ctx context.Context, resp domain.Response) (domain.Response, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.UpdateResponse(ctx, resp)
}

func (s *Store) State(ctx context.Context) (domain.SessionState, error) {
	r, unlock := s.locked()
	defer unlock()
	return r.State(ctx)
}

func (s *Store) SaveState(ctx context.Context, state domain.SessionState) error {
	r, unlock := s.locked()
	defer unlock()
	return r.SaveState(ctx, state)
}

func (s *Store) Reset(ctx context.Context) error {
	r, unlock := s.locked()
	defer unlock()
	return r.Reset(ctx)
}

// repo operates on the dataset without locking; callers hold Store.mu.
type repo struct {
	d *dataset
}

func (r *repo) UserByID(_ context.Context, id int64) (domain.User, error) {
	if u, ok := r.d.users[id]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *repo) UserByName(_ context.Context, name string) (domain.User, error) {
	for _, u := range r.d.users {
		if u.Name == name {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (r *repo) CreateUser(ctx context.Context, name string, isAdmin bool) (domain.User, error) {
	if _, err := r.UserByName(ctx, name); err == nil {
		return domain.User{}, domain.ErrConflict
	}
	r.d.nextUserID++
	u := domain.User{ID: r.d.nextUserID, Name: name, IsAdmin: isAdmin}
	r.d.users[u.ID] = u
	return u, nil
}

func (r *repo) ListUsers(context.Context) ([]domain.User, error) {
	users := make([]domain.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *repo) AddScore(_ context.Context, userID int64, delta int) error {
	u, ok := r.d.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Score += delta
	r.d.users[userID] = u
	return nil
}

func (r *repo) ListQuizzes(context.Context) ([]domain.Quiz, error) {
	quizzes := make([]domain.Quiz, 0, len(r.d.quizzes))
	for _, q := range r.d.quizzes {
		quizzes = append(quizzes, q)
	}
	sort.Slice(quizzes, func(i, j int) bool {
		if quizzes[i].Order != quizzes[j].Order {
			return quizzes[i].Order < quizzes[j].Order
		}
		return quizzes[i].ID < quizzes[j].ID
	})
	return quizzes, nil
}

func (r *repo) QuizByID(_ context.Context, id int64) (domain.Quiz, error) {
	if q, ok := r.d.quizzes[id]; ok {
		return q, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (r *repo) CreateQuiz(_ context.Context, in domain.QuizInput) (domain.Quiz, error) {
	r.d.nextQuizID++
	q := domain.Quiz{
		ID:            r.d.nextQuizID,
		Question:      in.Question,
		ImageURL:      in.ImageURL,
		OptionA:       in.OptionA,
		OptionB:       in.OptionB,
		OptionC:       in.OptionC,
		OptionD:       in.OptionD,
		CorrectAnswer: in.CorrectAnswer,
		Order:         in.Order,
		TimeLimit:     in.TimeLimit,
	}
	r.d.quizzes[q.ID] = q
	return q, nil
}

func (r *repo) SaveQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if _, ok := r.d.quizzes[quiz.ID]; !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	r.d.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (r *repo) DeleteQuiz(_ context.Context, id int64) error {
	if _, ok := r.d.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(r.d.quizzes, id)
	return nil
}

func (r *repo) ListResponses(context.Context) ([]domain.ResponseView, error) {
	views := make([]domain.ResponseView, 0, len(r.d.responses))
	for _, resp := range r.d.responses {
		u, ok := r.d.users[resp.UserID]
		if !ok {
			continue
		}
		views = append(views, domain.ResponseView{Response: resp, UserName: u.Name})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (r *repo) ResponsesForQuiz(_ context.Context, quizID int64) ([]domain.Response, error) {
	var out []domain.Response
	for _, resp := range r.d.responses {
		if resp.QuizID == quizID {
			out = append(out, resp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repo) ResponseFor(_ context.Context, userID, quizID int64) (domain.Response, bool, error) {
	for _, resp := range r.d.responses {
		if resp.UserID == userID && resp.QuizID == quizID {
			return resp, true, nil
		}
	}
	return domain.Response{}, false, nil
}

func (r *repo) InsertResponse(ctx context.Context, resp domain.Response) (domain.Response, error) {
	if _, ok, _ := r.ResponseFor(ctx, resp.UserID, resp.QuizID); ok {
		return domain.Response{}, domain.ErrConflict
	}
	r.d.nextResponseID++
	resp.ID = r.d.nextResponseID
	r.d.responses[resp.ID] = resp
	return resp, nil
}

func (r *repo) UpdateResponse(_ context.Context, resp domain.Response) (domain.Response, error) {
	if _, ok := r.d.responses[resp.ID]; !ok {
		return domain.Response{}, domain.ErrNotFound
	}
	r.d.responses[resp.ID] = resp
	return resp, nil
}

func (r *repo) State(context.Context) (domain.SessionState, error) {
	if r.d.state == nil {
		r.d.state = &domain.SessionState{}
	}
	return *r.d.state, nil
}

func (r *repo) SaveState(_ context.Context, state domain.SessionState) error {
	r.d.state = &state
	return nil
}

// Reset keeps the id counters so ids are never handed out twice.
func (r *repo) Reset(context.Context) error {
	fresh := newDataset()
	fresh.nextUserID = r.d.nextUserID
	fresh.nextQuizID = r.d.nextQuizID
	fresh.nextResponseID = r.d.nextResponseID
	*r.d = *fresh
	return nil
}
