package app

import (
	"context"
	"errors"

	"live-quiz-service/internal/domain"
)

// submit records or replaces userID's answer to quizID. The reveal flag is read inside
// the same transaction as the write, so a concurrent reveal either sees this answer or rejects it.
func submit(ctx context.Context, tx Repository, userID, quizID int64, sel domain.Selection) (domain.Response, error) {
	state, err := tx.State(ctx)
	if err != nil {
		return domain.Response{}, err
	}
	if state.IsResultRevealed {
		return domain.Response{}, domain.ErrResultsRevealed
	}

	if _, err := tx.UserByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Response{}, domain.ErrUnauthenticated
		}
		return domain.Response{}, err
	}
	quiz, err := tx.QuizByID(ctx, quizID)
	if err != nil {
		return domain.Response{}, err
	}

	existing, ok, err := tx.ResponseFor(ctx, userID, quizID)
	if err != nil {
		return domain.Response{}, err
	}
	if ok {
		existing.Selection = sel
		existing.IsCorrect = sel == quiz.CorrectAnswer
		return tx.UpdateResponse(ctx, existing)
	}
	return tx.InsertResponse(ctx, domain.Response{
		UserID:    userID,
		QuizID:    quizID,
		Selection: sel,
		IsCorrect: sel == quiz.CorrectAnswer,
	})
}
