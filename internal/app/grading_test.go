package app_test

import (
	"testing"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

func TestLetterGradeBoundaries(t *testing.T) {
	cases := []struct {
		percentage float64
		want       string
	}{
		{96.9, "A"},
		{97, "A+"},
		{93, "A"},
		{92.9, "A-"},
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
		{59.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		if got := app.LetterGrade(tc.percentage); got != tc.want {
			t.Errorf("LetterGrade(%v) = %q, want %q", tc.percentage, got, tc.want)
		}
	}
}

func TestCoarseLetter(t *testing.T) {
	cases := map[string]string{"A+": "A", "A": "A", "A-": "A", "D-": "D", "F": "F"}
	for in, want := range cases {
		if got := app.CoarseLetter(in); got != want {
			t.Errorf("CoarseLetter(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGradePerfectScore(t *testing.T) {
	quiz := domain.Quiz{
		Questions: []domain.Question{
			{ID: 1, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 2},
			{ID: 2, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 3},
		},
	}
	quiz.RecalcTotals()

	results, total, percentage, letter := app.Grade(quiz, []string{"B", "B"})
	if total != 5 || percentage != 100 || letter != "A+" {
		t.Fatalf("got total=%d percentage=%v letter=%q, want 5/100/A+", total, percentage, letter)
	}
	for i, r := range results {
		if !r.IsCorrect || r.PointsAwarded != r.MaxPoints {
			t.Fatalf("result %d not fully awarded: %+v", i, r)
		}
	}
}

func TestGradeMissingAnswersAreWrong(t *testing.T) {
	quiz := domain.Quiz{
		Questions: []domain.Question{
			{ID: 1, Options: []string{"A", "B"}, CorrectAnswer: "A", Points: 4},
			{ID: 2, Options: []string{"A", "B"}, CorrectAnswer: "B", Points: 6},
		},
	}
	quiz.RecalcTotals()

	results, total, percentage, letter := app.Grade(quiz, []string{"A"})
	if total != 4 || percentage != 40 || letter != "F" {
		t.Fatalf("got total=%d percentage=%v letter=%q, want 4/40/F", total, percentage, letter)
	}
	if results[1].StudentAnswer != "" || results[1].IsCorrect {
		t.Fatalf("missing answer should grade as empty and incorrect, got %+v", results[1])
	}
}

func TestGradeZeroMaxScore(t *testing.T) {
	_, total, percentage, letter := app.Grade(domain.Quiz{}, nil)
	if total != 0 || percentage != 0 || letter != "F" {
		t.Fatalf("empty quiz should grade 0/0/F, got %d/%v/%q", total, percentage, letter)
	}
}

func TestGradeIsCaseSensitive(t *testing.T) {
	quiz := domain.Quiz{
		Questions: []domain.Question{
			{ID: 1, Options: []string{"Paris", "London"}, CorrectAnswer: "Paris", Points: 1},
		},
	}
	quiz.RecalcTotals()

	results, _, _, _ := app.Grade(quiz, []string{"paris"})
	if results[0].IsCorrect {
		t.Fatal("comparison must be exact, case-sensitive string equality")
	}
}
