package watcher

import (
	"fmt"
	"io"
	"strings"

	"live-quiz-service/internal/domain"
)

// Render writes a plain-text projector view of s.
func Render(out io.Writer, s Snapshot) error {
	var b strings.Builder
	b.WriteString("==== live quiz ====\n")

	current := currentQuiz(s)
	switch {
	case current == nil:
		b.WriteString("waiting for the next question\n")
	default:
		fmt.Fprintf(&b, "Q%d: %s\n", current.Order, current.Question)
		for _, opt := range []struct {
			label domain.Selection
			text  string
		}{
			{domain.SelectionA, current.OptionA},
			{domain.SelectionB, current.OptionB},
			{domain.SelectionC, current.OptionC},
			{domain.SelectionD, current.OptionD},
		} {
			mark := " "
			if s.State.IsResultRevealed && opt.label == current.CorrectAnswer {
				mark = "*"
			}
			fmt.Fprintf(&b, " %s %s) %-30s %d\n", mark, opt.label, opt.text, countAnswers(s, current.ID, opt.label))
		}
		if s.State.RemainingSeconds != nil {
			fmt.Fprintf(&b, "time left: %ds\n", *s.State.RemainingSeconds)
		}
	}

	b.WriteString("---- leaderboard ----\n")
	if len(s.Leaderboard) == 0 {
		b.WriteString("(no players yet)\n")
	}
	for i, e := range s.Leaderboard {
		fmt.Fprintf(&b, "%2d. %-20s %d\n", i+1, e.Name, e.Score)
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func currentQuiz(s Snapshot) *domain.Quiz {
	if s.State.CurrentQuizID == nil {
		return nil
	}
	for i := range s.Quizzes {
		if s.Quizzes[i].ID == *s.State.CurrentQuizID {
			return &s.Quizzes[i]
		}
	}
	return nil
}

func countAnswers(s Snapshot, quizID int64, sel domain.Selection) int {
	n := 0
	for _, r := range s.Responses {
		if r.QuizID == quizID && r.Selection == sel {
			n++
		}
	}
	return n
}
