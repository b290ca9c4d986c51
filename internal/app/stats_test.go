package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

func submitAs(t *testing.T, env *testEnv, quizID, studentID string, answers []string) {
	t.Helper()
	if _, err := env.service.Submit(context.Background(), "caller-"+studentID, quizID, app.SubmitRequest{
		StudentID:   studentID,
		StudentName: "Student " + studentID,
		Answers:     answers,
	}); err != nil {
		t.Fatalf("submit %s: %v", studentID, err)
	}
}

func TestRecomputeAggregates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	spec := validSpec()
	spec.AllowRetakes = true
	quiz, _ := env.manager.Create(ctx, "prof-1", spec)

	submitAs(t, env, quiz.ID, "s1", []string{"Transport", "80"}) // 100%, A+
	submitAs(t, env, quiz.ID, "s2", []string{"Transport", ""})   // 40%, F
	submitAs(t, env, quiz.ID, "s3", []string{"", "80"})          // 60%, D-

	stored, err := env.quizzes.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stats := stored.Stats
	if stats.Count != 3 {
		t.Fatalf("count = %d, want 3", stats.Count)
	}
	if stats.AveragePercentage != 66.67 {
		t.Fatalf("average = %v, want 66.67", stats.AveragePercentage)
	}
	if stats.MaxPercentage != 100 || stats.MinPercentage != 40 {
		t.Fatalf("max/min = %v/%v, want 100/40", stats.MaxPercentage, stats.MinPercentage)
	}
	if stats.PassRate != 66.67 {
		t.Fatalf("pass rate = %v, want 66.67", stats.PassRate)
	}
	if stats.GradeDistribution["A"] != 1 || stats.GradeDistribution["D"] != 1 || stats.GradeDistribution["F"] != 1 {
		t.Fatalf("distribution = %v", stats.GradeDistribution)
	}
	if stats.GradeDistribution["B"] != 0 || stats.GradeDistribution["C"] != 0 {
		t.Fatalf("expected zeroed buckets present, got %v", stats.GradeDistribution)
	}
	if stats.LastSubmissionAt == nil {
		t.Fatal("lastSubmissionAt must be set")
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	spec := validSpec()
	spec.AllowRetakes = true
	quiz, _ := env.manager.Create(ctx, "prof-1", spec)
	submitAs(t, env, quiz.ID, "s1", []string{"Transport", "80"})
	submitAs(t, env, quiz.ID, "s2", []string{"Link", "443"})

	first, err := env.aggregator.Recompute(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second, err := env.aggregator.Recompute(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatalf("snapshots differ:\n%s\n%s", a, b)
	}
}

func TestComputeStatsEmptySet(t *testing.T) {
	stats := app.ComputeStats(nil)
	if stats.Count != 0 || stats.LastSubmissionAt != nil || stats.GradeDistribution != nil {
		t.Fatalf("empty set must yield zero snapshot, got %+v", stats)
	}
}

func TestComputeStatsSingleSubmission(t *testing.T) {
	subs := []domain.Submission{{Percentage: 85, LetterGrade: "B"}}
	stats := app.ComputeStats(subs)
	if stats.AveragePercentage != 85 || stats.MaxPercentage != 85 || stats.MinPercentage != 85 {
		t.Fatalf("single submission stats wrong: %+v", stats)
	}
	if stats.PassRate != 100 || stats.GradeDistribution["B"] != 1 {
		t.Fatalf("pass rate/distribution wrong: %+v", stats)
	}
}
