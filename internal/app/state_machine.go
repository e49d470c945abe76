package app

import (
	"fmt"
	"time"

	"live-quiz-service/internal/domain"
)

// CommandKind enumerates the admin transitions of the session state.
type CommandKind int

const (
	CommandStart CommandKind = iota + 1
	CommandStop
	CommandSetReveal
	CommandStartTimer
)

func (k CommandKind) String() string {
	switch k {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandSetReveal:
		return "set-reveal"
	case CommandStartTimer:
		return "start-timer"
	default:
		return fmt.Sprintf("command(%d)", int(k))
	}
}

// Command is one admin transition request.
type Command struct {
	Kind   CommandKind
	QuizID int64
	Reveal bool
}

func StartCommand(quizID int64) Command { return Command{Kind: CommandStart, QuizID: quizID} }
func StopCommand() Command              { return Command{Kind: CommandStop} }
func RevealCommand(reveal bool) Command { return Command{Kind: CommandSetReveal, Reveal: reveal} }
func TimerCommand() Command             { return Command{Kind: CommandStartTimer} }

// Transition applies cmd to prev. It is pure: no store access, no side effects.
// Commands that make no sense in the current state leave it unchanged.
func Transition(prev domain.SessionState, cmd Command, now time.Time) domain.SessionState {
	next := prev
	switch cmd.Kind {
	case CommandStart:
		id := cmd.QuizID
		next.CurrentQuizID = &id
		next.IsResultRevealed = false
		next.TimerStartedAt = nil
	case CommandStop:
		next.CurrentQuizID = nil
		next.IsResultRevealed = false
		next.TimerStartedAt = nil
	case CommandSetReveal:
		if !prev.Active() || prev.IsResultRevealed == cmd.Reveal {
			return prev
		}
		next.IsResultRevealed = cmd.Reveal
		next.TimerStartedAt = nil
	case CommandStartTimer:
		if !prev.Active() || prev.IsResultRevealed || prev.TimerStartedAt != nil {
			return prev
		}
		started := now
		next.TimerStartedAt = &started
	}
	return next
}

// RevealEdge reports the question to score when next reveals results that prev kept hidden.
// Only the false -> true edge counts; a repeated reveal yields nothing.
func RevealEdge(prev, next domain.SessionState) (int64, bool) {
	if prev.IsResultRevealed || !next.IsResultRevealed || next.CurrentQuizID == nil {
		return 0, false
	}
	return *next.CurrentQuizID, true
}

// StateUpdate is the body of the legacy "set the whole state" admin call.
type StateUpdate struct {
	CurrentQuizID    *int64
	IsResultRevealed bool
	StartTimer       bool
}

// CommandFor derives the single command an update asks for, given the current state.
// The bool is false when the update changes nothing.
func CommandFor(prev domain.SessionState, upd StateUpdate) (Command, bool) {
	switch {
	case upd.CurrentQuizID == nil:
		if !prev.Active() && !prev.IsResultRevealed && prev.TimerStartedAt == nil {
			return Command{}, false
		}
		return StopCommand(), true
	case !prev.IsCurrent(*upd.CurrentQuizID):
		return StartCommand(*upd.CurrentQuizID), true
	case upd.IsResultRevealed != prev.IsResultRevealed:
		return RevealCommand(upd.IsResultRevealed), true
	case upd.StartTimer:
		return TimerCommand(), true
	}
	return Command{}, false
}
