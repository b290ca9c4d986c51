package app

import (
	"math"
	"strings"

	"campus-quiz-service/internal/domain"
)

// gradeBands maps percentage lower bounds to letter grades, highest first.
var gradeBands = []struct {
	min    float64
	letter string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{63, "D"},
	{60, "D-"},
}

// LetterGrade maps a percentage to its letter grade. Bounds are inclusive:
// exactly 97 is an A+, exactly 60 a D-.
func LetterGrade(percentage float64) string {
	for _, band := range gradeBands {
		if percentage >= band.min {
			return band.letter
		}
	}
	return "F"
}

// CoarseLetter collapses +/- modifiers into the five coarse letters used by
// the grade distribution histogram.
func CoarseLetter(letter string) string {
	return strings.TrimRight(letter, "+-")
}

// Grade scores an answer set against the quiz's answer key. Answers align to
// questions by index; a missing answer counts as an empty string and is
// always incorrect. Comparison is exact string equality.
func Grade(quiz domain.Quiz, answers []string) ([]domain.QuestionResult, int, float64, string) {
	results := make([]domain.QuestionResult, 0, len(quiz.Questions))
	totalScore := 0
	for i, question := range quiz.Questions {
		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}
		correct := answer == question.CorrectAnswer
		awarded := 0
		if correct {
			awarded = question.Points
		}
		totalScore += awarded
		results = append(results, domain.QuestionResult{
			StudentAnswer: answer,
			CorrectAnswer: question.CorrectAnswer,
			IsCorrect:     correct,
			PointsAwarded: awarded,
			MaxPoints:     question.Points,
		})
	}

	percentage := 0.0
	if quiz.TotalPoints > 0 {
		percentage = round2(float64(totalScore) / float64(quiz.TotalPoints) * 100)
	}
	return results, totalScore, percentage, LetterGrade(percentage)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
