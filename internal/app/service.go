package app

import (
	"context"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SubmitRequest is a student's completed attempt, answers aligned by index to
// the quiz's questions.
type SubmitRequest struct {
	StudentID        string   `json:"studentId"`
	StudentName      string   `json:"studentName"`
	Password         string   `json:"password"`
	Answers          []string `json:"answers"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
}

// SubmitResult is the graded receipt. StatsRefreshed is false when the
// submission was durably recorded but the snapshot write failed; the next
// accepted submission repairs the snapshot. ResultsWithheld mirrors the
// quiz's showResultsImmediately switch.
type SubmitResult struct {
	Submission      domain.Submission `json:"submission"`
	Stats           domain.QuizStats  `json:"stats"`
	StatsRefreshed  bool              `json:"statsRefreshed"`
	ResultsWithheld bool              `json:"resultsWithheld"`
}

// SubmissionService runs the taking flow: admission, grading, durable record,
// statistics recompute, notification.
type SubmissionService struct {
	quizzes    QuizRepository
	subs       SubmissionRepository
	aggregator *StatisticsAggregator
	notifier   Notifier
	now        func() time.Time
	newID      func() string
}

func NewSubmissionService(quizzes QuizRepository, subs SubmissionRepository, aggregator *StatisticsAggregator, notifier Notifier) *SubmissionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SubmissionService{
		quizzes:    quizzes,
		subs:       subs,
		aggregator: aggregator,
		notifier:   notifier,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Submit admits, grades and records one attempt.
//
// Admission order: quiz must exist, be active, and on a private quiz the
// password must match exactly. When retakes are disallowed a prior submission
// for the same studentId is rejected; the store's insert re-checks this
// atomically, so concurrent duplicates race to a single winner.
func (s *SubmissionService) Submit(ctx context.Context, submitterID, quizID string, req SubmitRequest) (SubmitResult, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !quiz.IsActive {
		return SubmitResult{}, domain.ErrQuizInactive
	}
	if quiz.Visibility == domain.VisibilityPrivate && req.Password != quiz.Password {
		return SubmitResult{}, domain.ErrWrongPassword
	}
	if err := validateSubmit(quiz, req); err != nil {
		return SubmitResult{}, err
	}
	if !quiz.AllowRetakes {
		exists, err := s.subs.HasStudentSubmission(ctx, quizID, req.StudentID)
		if err != nil {
			return SubmitResult{}, err
		}
		if exists {
			return SubmitResult{}, domain.ErrDuplicateSubmission
		}
	}

	results, totalScore, percentage, letter := Grade(quiz, req.Answers)
	sub := domain.Submission{
		ID:               s.newID(),
		QuizID:           quiz.ID,
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		SubmitterID:      submitterID,
		Results:          results,
		TotalScore:       totalScore,
		MaxScore:         quiz.TotalPoints,
		Percentage:       percentage,
		LetterGrade:      letter,
		TimeSpentSeconds: req.TimeSpentSeconds,
		SubmittedAt:      s.now(),
	}

	if err := s.subs.Insert(ctx, &sub, !quiz.AllowRetakes); err != nil {
		return SubmitResult{}, err
	}

	// The submission is durable from here on. A failed stats refresh is a
	// warning, not a failure; the next recompute re-scans the full set.
	result := SubmitResult{Submission: sub, ResultsWithheld: !quiz.ShowResults}
	stats, err := s.aggregator.Recompute(ctx, quiz.ID)
	if err == nil {
		result.Stats = stats
		result.StatsRefreshed = true
	}

	_ = s.notifier.Publish(ctx, domain.Event{
		Type:       domain.EventSubmissionAccepted,
		QuizID:     quiz.ID,
		OwnerID:    quiz.OwnerID,
		StudentID:  req.StudentID,
		Stats:      result.Stats,
		OccurredAt: sub.SubmittedAt,
	})
	return result, nil
}

func validateSubmit(quiz domain.Quiz, req SubmitRequest) error {
	var violations []string
	if req.StudentID == "" {
		violations = append(violations, "studentId must not be empty")
	}
	if req.StudentName == "" {
		violations = append(violations, "studentName must not be empty")
	}
	if len(req.Answers) > len(quiz.Questions) {
		violations = append(violations, "more answers than questions")
	}
	if req.TimeSpentSeconds < 0 {
		violations = append(violations, "timeSpentSeconds must not be negative")
	}
	return domain.Validation(violations)
}
