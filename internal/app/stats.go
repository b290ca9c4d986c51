package app

import (
	"context"

	"campus-quiz-service/internal/domain"
)

// passThreshold is the percentage at or above which a submission counts as a
// pass in the aggregate snapshot.
const passThreshold = 60.0

// coarseLetters are the histogram buckets of the grade distribution.
var coarseLetters = []string{"A", "B", "C", "D", "F"}

// StatisticsAggregator recomputes the class-level snapshot from the full
// submission set. The full scan makes the recompute idempotent and lets a
// lost stats write self-heal on the next submission.
type StatisticsAggregator struct {
	quizzes QuizRepository
	subs    SubmissionRepository
}

func NewStatisticsAggregator(quizzes QuizRepository, subs SubmissionRepository) *StatisticsAggregator {
	return &StatisticsAggregator{quizzes: quizzes, subs: subs}
}

// Recompute scans every submission for the quiz and writes the snapshot back
// in a single store update.
func (a *StatisticsAggregator) Recompute(ctx context.Context, quizID string) (domain.QuizStats, error) {
	subs, err := a.subs.ListByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStats{}, err
	}
	stats := ComputeStats(subs)
	if err := a.quizzes.UpdateStats(ctx, quizID, stats); err != nil {
		return domain.QuizStats{}, err
	}
	return stats, nil
}

// ComputeStats derives the aggregate snapshot from a submission set.
func ComputeStats(subs []domain.Submission) domain.QuizStats {
	if len(subs) == 0 {
		return domain.QuizStats{}
	}

	distribution := make(map[string]int, len(coarseLetters))
	for _, letter := range coarseLetters {
		distribution[letter] = 0
	}

	sum := 0.0
	max := subs[0].Percentage
	min := subs[0].Percentage
	passed := 0
	last := subs[0].SubmittedAt
	for _, sub := range subs {
		sum += sub.Percentage
		if sub.Percentage > max {
			max = sub.Percentage
		}
		if sub.Percentage < min {
			min = sub.Percentage
		}
		if sub.Percentage >= passThreshold {
			passed++
		}
		if sub.SubmittedAt.After(last) {
			last = sub.SubmittedAt
		}
		distribution[CoarseLetter(sub.LetterGrade)]++
	}

	count := len(subs)
	return domain.QuizStats{
		Count:             count,
		AveragePercentage: round2(sum / float64(count)),
		MaxPercentage:     max,
		MinPercentage:     min,
		PassRate:          round2(float64(passed) / float64(count) * 100),
		GradeDistribution: distribution,
		LastSubmissionAt:  &last,
	}
}
