package app

import (
	"context"
	"fmt"

	"live-quiz-service/internal/domain"
)

// AwardResult summarises one scoring pass.
type AwardResult struct {
	QuizID   int64
	Marked   int
	Credited []int64
}

// award marks every response to quizID that picked correct and credits each owner once.
// Re-running it re-marks rows but never credits a response twice.
func award(ctx context.Context, tx Repository, quizID int64, correct domain.Selection) (AwardResult, error) {
	result := AwardResult{QuizID: quizID}

	responses, err := tx.ResponsesForQuiz(ctx, quizID)
	if err != nil {
		return result, fmt.Errorf("load responses for quiz %d: %w", quizID, err)
	}

	for _, r := range responses {
		if r.Selection != correct {
			continue
		}
		result.Marked++
		if r.IsCorrect && r.Credited {
			continue
		}
		if !r.Credited {
			if err := tx.AddScore(ctx, r.UserID, 1); err != nil {
				return result, fmt.Errorf("credit user %d: %w", r.UserID, err)
			}
			result.Credited = append(result.Credited, r.UserID)
		}
		r.IsCorrect = true
		r.Credited = true
		if _, err := tx.UpdateResponse(ctx, r); err != nil {
			return result, fmt.Errorf("mark response %d: %w", r.ID, err)
		}
	}
	return result, nil
}
