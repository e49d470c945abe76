package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind names a notification on the fan-out channel.
type EventKind string

const (
	EventStateChanged    EventKind = "state-changed"
	EventQuizListChanged EventKind = "quiz-list-changed"
	EventResponseChanged EventKind = "response-changed"
	EventUserJoined      EventKind = "user-joined"
	EventScoreChanged    EventKind = "score-changed"
)

// Event is a closed union of notification kinds. Every event is a hint to re-fetch;
// payloads are a convenience and never the source of truth.
type Event interface {
	Kind() EventKind
	Accept(v EventVisitor)
	payload() any
}

// EventVisitor must handle every kind, so adding a kind breaks every receiver at compile time.
type EventVisitor interface {
	VisitStateChanged(StateChanged)
	VisitQuizListChanged(QuizListChanged)
	VisitResponseChanged(ResponseChanged)
	VisitUserJoined(UserJoined)
	VisitScoreChanged(ScoreChanged)
}

// StateChanged carries the freshly committed session state.
type StateChanged struct {
	State SessionState
}

// QuizListChanged carries the edited quiz, or nil when the whole list should be re-fetched.
type QuizListChanged struct {
	Quiz *Quiz
}

// ResponseChanged carries the stored response.
type ResponseChanged struct {
	Response Response
}

// UserJoined carries the user that just logged in.
type UserJoined struct {
	User User
}

// ScoreChanged carries the leaderboard computed after the change.
type ScoreChanged struct {
	Leaderboard []LeaderboardEntry
}

func (StateChanged) Kind() EventKind    { return EventStateChanged }
func (QuizListChanged) Kind() EventKind { return EventQuizListChanged }
func (ResponseChanged) Kind() EventKind { return EventResponseChanged }
func (UserJoined) Kind() EventKind      { return EventUserJoined }
func (ScoreChanged) Kind() EventKind    { return EventScoreChanged }

func (e StateChanged) Accept(v EventVisitor)    { v.VisitStateChanged(e) }
func (e QuizListChanged) Accept(v EventVisitor) { v.VisitQuizListChanged(e) }
func (e ResponseChanged) Accept(v EventVisitor) { v.VisitResponseChanged(e) }
func (e UserJoined) Accept(v EventVisitor)      { v.VisitUserJoined(e) }
func (e ScoreChanged) Accept(v EventVisitor)    { v.VisitScoreChanged(e) }

func (e StateChanged) payload() any    { return e.State }
func (e QuizListChanged) payload() any { return e.Quiz }
func (e ResponseChanged) payload() any { return e.Response }
func (e UserJoined) payload() any      { return e.User }
func (e ScoreChanged) payload() any {
	if e.Leaderboard == nil {
		return []LeaderboardEntry{}
	}
	return e.Leaderboard
}

// Envelope is the wire shape: {"type": ..., "payload": ...}.
type Envelope struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent marshals an event into its wire envelope.
func EncodeEvent(e Event) ([]byte, error) {
	raw, err := json.Marshal(e.payload())
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Type: e.Kind(), Payload: raw})
}

// DecodeEvent parses a wire envelope back into the typed union.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case EventStateChanged:
		var e StateChanged
		if err := decodePayload(env, &e.State); err != nil {
			return nil, err
		}
		return e, nil
	case EventQuizListChanged:
		var e QuizListChanged
		if err := decodePayload(env, &e.Quiz); err != nil {
			return nil, err
		}
		return e, nil
	case EventResponseChanged:
		var e ResponseChanged
		if err := decodePayload(env, &e.Response); err != nil {
			return nil, err
		}
		return e, nil
	case EventUserJoined:
		var e UserJoined
		if err := decodePayload(env, &e.User); err != nil {
			return nil, err
		}
		return e, nil
	case EventScoreChanged:
		var e ScoreChanged
		if err := decodePayload(env, &e.Leaderboard); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return nil
}
