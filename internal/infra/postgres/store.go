package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const uniqueViolation = "23505"

// querier is the subset of pgxpool.Pool and pgx.Tx the repository needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store implements app.Store on Postgres. Calls outside RunInTx run on the pool;
// inside RunInTx every call shares one transaction and State locks the app_state row.
type Store struct {
	*repo
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{repo: &repo{q: pool}, pool: pool}
}

var _ app.Store = (*Store)(nil)

func (s *Store) RunInTx(ctx context.Context, fn func(tx app.Repository) error) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		return fn(&repo{q: tx, inTx: true})
	})
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type repo struct {
	q    querier
	inTx bool
}

const userColumns = `id, name, is_admin, score`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.IsAdmin, &u.Score)
	return u, err
}

func (r *repo) UserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (r *repo) UserByName(ctx context.Context, name string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

func (r *repo) CreateUser(ctx context.Context, name string, isAdmin bool) (domain.User, error) {
	// A concurrent login of the same name gets the row the winner created.
	return scanUser(r.q.QueryRow(ctx, `
		INSERT INTO users (name, is_admin) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING `+userColumns, name, isAdmin))
}

func (r *repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repo) AddScore(ctx context.Context, userID int64, delta int) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET score = score + $2 WHERE id = $1`, userID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

const quizColumns = `id, question, image_url, option_a, option_b, option_c, option_d, correct_answer, sort_order, time_limit`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		q       domain.Quiz
		correct string
	)
	err := row.Scan(&q.ID, &q.Question, &q.ImageURL, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&correct, &q.Order, &q.TimeLimit)
	q.CorrectAnswer = domain.Selection(correct)
	return q, err
}

func (r *repo) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := r.q.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := []domain.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *repo) QuizByID(ctx context.Context, id int64) (domain.Quiz, error) {
	q, err := scanQuiz(r.q.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, err
}

func (r *repo) CreateQuiz(ctx context.Context, in domain.QuizInput) (domain.Quiz, error) {
	return scanQuiz(r.q.QueryRow(ctx, `
		INSERT INTO quizzes (question, image_url, option_a, option_b, option_c, option_d, correct_answer, sort_order, time_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+quizColumns,
		in.Question, in.ImageURL, in.OptionA, in.OptionB, in.OptionC, in.OptionD,
		string(in.CorrectAnswer), in.Order, in.TimeLimit))
}

func (r *repo) SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	saved, err := scanQuiz(r.q.QueryRow(ctx, `
		UPDATE quizzes SET question = $2, image_url = $3, option_a = $4, option_b = $5, option_c = $6,
			option_d = $7, correct_answer = $8, sort_order = $9, time_limit = $10
		WHERE id = $1
		RETURNING `+quizColumns,
		quiz.ID, quiz.Question, quiz.ImageURL, quiz.OptionA, quiz.OptionB, quiz.OptionC, quiz.OptionD,
		string(quiz.CorrectAnswer), quiz.Order, quiz.TimeLimit))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return saved, err
}

func (r *repo) DeleteQuiz(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

const responseColumns = `r.id, r.user_id, r.quiz_id, r.selection, r.is_correct, r.credited`

func scanResponse(row pgx.Row, extra ...interface{}) (domain.Response, error) {
	var (
		resp domain.Response
		sel  string
	)
	dest := append([]interface{}{&resp.ID, &resp.UserID, &resp.QuizID, &sel, &resp.IsCorrect, &resp.Credited}, extra...)
	err := row.Scan(dest...)
	resp.Selection = domain.Selection(sel)
	return resp, err
}

func (r *repo) ListResponses(ctx context.Context) ([]domain.ResponseView, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+responseColumns+`, u.name
		FROM responses r JOIN users u ON u.id = r.user_id
		ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []domain.ResponseView{}
	for rows.Next() {
		var name string
		resp, err := scanResponse(rows, &name)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.ResponseView{Response: resp, UserName: name})
	}
	return views, rows.Err()
}

func (r *repo) ResponsesForQuiz(ctx context.Context, quizID int64) ([]domain.Response, error) {
	rows, err := r.q.Query(ctx, `SELECT `+responseColumns+` FROM responses r WHERE r.quiz_id = $1 ORDER BY r.id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func (r *repo) ResponseFor(ctx context.Context, userID, quizID int64) (domain.Response, bool, error) {
	resp, err := scanResponse(r.q.QueryRow(ctx,
		`SELECT `+responseColumns+` FROM responses r WHERE r.user_id = $1 AND r.quiz_id = $2`, userID, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Response{}, false, nil
	}
	if err != nil {
		return domain.Response{}, false, err
	}
	return resp, true, nil
}

func (r *repo) InsertResponse(ctx context.Context, resp domain.Response) (domain.Response, error) {
	saved, err := scanResponse(r.q.QueryRow(ctx, `
		INSERT INTO responses AS r (user_id, quiz_id, selection, is_correct, credited)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+responseColumns,
		resp.UserID, resp.QuizID, string(resp.Selection), resp.IsCorrect, resp.Credited))
	if isUniqueViolation(err) {
		return domain.Response{}, fmt.Errorf("%w: response already recorded", domain.ErrConflict)
	}
	return saved, err
}

func (r *repo) UpdateResponse(ctx context.Context, resp domain.Response) (domain.Response, error) {
	saved, err := scanResponse(r.q.QueryRow(ctx, `
		UPDATE responses AS r SET selection = $2, is_correct = $3, credited = $4
		WHERE r.id = $1
		RETURNING `+responseColumns,
		resp.ID, string(resp.Selection), resp.IsCorrect, resp.Credited))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Response{}, domain.ErrNotFound
	}
	return saved, err
}

func (r *repo) State(ctx context.Context) (domain.SessionState, error) {
	if _, err := r.q.Exec(ctx, `INSERT INTO app_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return domain.SessionState{}, err
	}

	query := `SELECT current_quiz_id, is_result_revealed, timer_started_at FROM app_state WHERE id = 1`
	if r.inTx {
		query += ` FOR UPDATE`
	}
	var (
		st      domain.SessionState
		started *time.Time
	)
	if err := r.q.QueryRow(ctx, query).Scan(&st.CurrentQuizID, &st.IsResultRevealed, &started); err != nil {
		return domain.SessionState{}, err
	}
	if started != nil {
		t := started.UTC()
		st.TimerStartedAt = &t
	}
	return st, nil
}

func (r *repo) SaveState(ctx context.Context, state domain.SessionState) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO app_state (id, current_quiz_id, is_result_revealed, timer_started_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			current_quiz_id = EXCLUDED.current_quiz_id,
			is_result_revealed = EXCLUDED.is_result_revealed,
			timer_started_at = EXCLUDED.timer_started_at`,
		state.CurrentQuizID, state.IsResultRevealed, state.TimerStartedAt)
	return err
}

func (r *repo) Reset(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `TRUNCATE responses, quizzes, users`); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `
		UPDATE app_state SET current_quiz_id = NULL, is_result_revealed = FALSE, timer_started_at = NULL
		WHERE id = 1`)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
