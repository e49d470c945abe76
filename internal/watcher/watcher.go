package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const (
	DefaultPollInterval   = 5 * time.Second
	DefaultReconnectDelay = 3 * time.Second
)

// Config points a Watcher at a running server.
type Config struct {
	ServerURL      string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	HTTPClient     *http.Client
	// Out receives a rendering after every change; nil disables output.
	Out io.Writer
}

// Snapshot is the last authoritative copy of every resource the watcher mirrors.
type Snapshot struct {
	State       app.StateView
	Quizzes     []domain.Quiz
	Responses   []domain.ResponseView
	Leaderboard []domain.LeaderboardEntry
}

// Watcher mirrors the server the way a projector screen does: events are only hints,
// every change is re-fetched over HTTP, and a poll covers anything the socket missed.
type Watcher struct {
	cfg    Config
	base   *url.URL
	dialer *websocket.Dialer

	refreshMu sync.Mutex
	mu        sync.Mutex
	snap      Snapshot
}

func New(cfg Config) (*Watcher, error) {
	base, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", cfg.ServerURL)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Watcher{
		cfg:    cfg,
		base:   base,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Snapshot returns a copy of the mirrored resources.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.snap
	s.Quizzes = append([]domain.Quiz(nil), s.Quizzes...)
	s.Responses = append([]domain.ResponseView(nil), s.Responses...)
	s.Leaderboard = append([]domain.LeaderboardEntry(nil), s.Leaderboard...)
	return s
}

// Run blocks until ctx is cancelled. Connection and fetch failures are logged and retried.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.listen(ctx) })
	g.Go(func() error { return w.poll(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Watcher) poll(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx, w.fetchAll)
		}
	}
}

func (w *Watcher) listen(ctx context.Context) error {
	for {
		if err := w.session(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Dur("retry_in", w.cfg.ReconnectDelay).Msg("watch connection lost")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.ReconnectDelay):
		}
	}
}

// session runs one websocket connection until it fails or ctx ends.
func (w *Watcher) session(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.wsURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	log.Info().Str("server", w.base.String()).Msg("watching")
	w.refresh(ctx, w.fetchAll)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		w.handle(ctx, data)
	}
}

func (w *Watcher) handle(ctx context.Context, data []byte) {
	e, err := domain.DecodeEvent(data)
	if err != nil {
		log.Debug().Err(err).Msg("ignoring unknown event")
		return
	}
	r := &refetcher{}
	e.Accept(r)
	w.refresh(ctx, r.fetchers(w)...)
}

// refetcher maps each event kind to the resources it invalidates.
type refetcher struct {
	state, quizzes, responses, leaderboard bool
}

func (r *refetcher) VisitStateChanged(domain.StateChanged) {
	r.state = true
	r.responses = true
}

func (r *refetcher) VisitQuizListChanged(domain.QuizListChanged) { r.quizzes = true }

func (r *refetcher) VisitResponseChanged(domain.ResponseChanged) { r.responses = true }

func (r *refetcher) VisitUserJoined(domain.UserJoined) {
	r.responses = true
	r.leaderboard = true
}

func (r *refetcher) VisitScoreChanged(domain.ScoreChanged) { r.leaderboard = true }

func (r *refetcher) fetchers(w *Watcher) []fetcher {
	var out []fetcher
	if r.state {
		out = append(out, w.fetchState)
	}
	if r.quizzes {
		out = append(out, w.fetchQuizzes)
	}
	if r.responses {
		out = append(out, w.fetchResponses)
	}
	if r.leaderboard {
		out = append(out, w.fetchLeaderboard)
	}
	return out
}

type fetcher func(ctx context.Context, s *Snapshot) error

// refresh runs the fetchers against a copy and publishes it only if all succeed.
func (w *Watcher) refresh(ctx context.Context, fetchers ...fetcher) {
	if len(fetchers) == 0 {
		return
	}
	w.refreshMu.Lock()
	defer w.refreshMu.Unlock()

	next := w.Snapshot()
	for _, f := range fetchers {
		if err := f(ctx, &next); err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("refresh failed")
			}
			return
		}
	}

	w.mu.Lock()
	w.snap = next
	w.mu.Unlock()

	if w.cfg.Out != nil {
		if err := Render(w.cfg.Out, next); err != nil {
			log.Warn().Err(err).Msg("render")
		}
	}
}

func (w *Watcher) fetchAll(ctx context.Context, s *Snapshot) error {
	for _, f := range []fetcher{w.fetchState, w.fetchQuizzes, w.fetchResponses, w.fetchLeaderboard} {
		if err := f(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) fetchState(ctx context.Context, s *Snapshot) error {
	return w.getJSON(ctx, "/api/state", &s.State)
}

func (w *Watcher) fetchQuizzes(ctx context.Context, s *Snapshot) error {
	return w.getJSON(ctx, "/api/quizzes", &s.Quizzes)
}

func (w *Watcher) fetchResponses(ctx context.Context, s *Snapshot) error {
	return w.getJSON(ctx, "/api/responses", &s.Responses)
}

func (w *Watcher) fetchLeaderboard(ctx context.Context, s *Snapshot) error {
	return w.getJSON(ctx, "/api/leaderboard", &s.Leaderboard)
}

func (w *Watcher) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base.String()+path, nil)
	if err != nil {
		return err
	}
	resp, err := w.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (w *Watcher) wsURL() string {
	u := *w.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}
