package app

import (
	"strings"

	"live-quiz-service/internal/domain"
)

// validateQuiz enforces the invariants of a stored question.
func validateQuiz(q domain.Quiz) error {
	if strings.TrimSpace(q.Question) == "" {
		return domain.Validationf("question is required")
	}
	for i, text := range []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD} {
		if strings.TrimSpace(text) == "" {
			return domain.Validationf("option %c is required", 'A'+i)
		}
	}
	if !q.CorrectAnswer.Valid() {
		return domain.ErrInvalidSelection
	}
	if q.TimeLimit <= 0 {
		return domain.Validationf("timeLimit must be positive")
	}
	return nil
}

func normaliseInput(in domain.QuizInput) domain.QuizInput {
	if in.TimeLimit == 0 {
		in.TimeLimit = domain.DefaultTimeLimit
	}
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) == "" {
		in.ImageURL = nil
	}
	return in
}

func quizFromInput(in domain.QuizInput) domain.Quiz {
	return domain.Quiz{
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
}

// DemoQuizzes is the starter catalog inserted by seeding.
func DemoQuizzes() []domain.QuizInput {
	return []domain.QuizInput{
		{Question: "What is the highest mountain in the world?", OptionA: "Mount Fuji", OptionB: "Mount Everest", OptionC: "K2", OptionD: "Matterhorn", CorrectAnswer: domain.SelectionB, Order: 1},
		{Question: `What does the "H" in "HTML" stand for?`, OptionA: "High", OptionB: "Home", OptionC: "Hyper", OptionD: "Hybrid", CorrectAnswer: domain.SelectionC, Order: 2},
		{Question: "Which is the largest planet in the solar system?", OptionA: "Earth", OptionB: "Saturn", OptionC: "Mars", OptionD: "Jupiter", CorrectAnswer: domain.SelectionD, Order: 3},
		{Question: `Where does the name of the "Python" language come from?`, OptionA: "The snake", OptionB: "Monty Python's Flying Circus", OptionC: "The author's pet", OptionD: "A Greek monster", CorrectAnswer: domain.SelectionB, Order: 4},
		{Question: "What is the current capital of Japan?", OptionA: "Osaka", OptionB: "Kyoto", OptionC: "Tokyo", OptionD: "Fukuoka", CorrectAnswer: domain.SelectionC, Order: 5},
	}
}
