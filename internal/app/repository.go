package app

import (
	"context"
	"time"

	"campus-quiz-service/internal/domain"
)

// QuizRepository abstracts how quizzes are stored (in-memory, Postgres, etc).
type QuizRepository interface {
	Insert(ctx context.Context, quiz *domain.Quiz) error
	// Get returns domain.ErrQuizNotFound when the quiz does not exist.
	Get(ctx context.Context, quizID string) (domain.Quiz, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	// Update rewrites the quiz document. It must not be used for lifecycle
	// transitions; those go through SetActive so the state check and the
	// write happen atomically.
	Update(ctx context.Context, quiz *domain.Quiz) error
	// SetActive flips the lifecycle switch under the store's own atomicity:
	// it returns domain.ErrQuizNotFound when the quiz is absent or not owned
	// by ownerID, domain.ErrQuizEnded when ending an ended quiz, and
	// domain.ErrQuizActive when activating an active one.
	SetActive(ctx context.Context, quizID, ownerID string, active bool, at time.Time) (domain.Quiz, error)
	// Delete removes the quiz; ownership is checked the same way as SetActive.
	Delete(ctx context.Context, quizID, ownerID string) error
	// UpdateStats overwrites the aggregate snapshot in a single write.
	UpdateStats(ctx context.Context, quizID string, stats domain.QuizStats) error
}

// SubmissionRepository stores graded submissions.
type SubmissionRepository interface {
	// Insert records a submission. When soleAttempt is true the store must
	// guarantee at most one submission per (quizID, studentID), returning
	// domain.ErrDuplicateSubmission to all but one of any concurrent callers.
	Insert(ctx context.Context, sub *domain.Submission, soleAttempt bool) error
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	CountByQuiz(ctx context.Context, quizID string) (int, error)
	HasStudentSubmission(ctx context.Context, quizID, studentID string) (bool, error)
	DeleteByQuiz(ctx context.Context, quizID string) error
}

// Notifier is the best-effort notification sink. Publish errors are ignored
// by callers; a failed notification never fails the operation that raised it.
type Notifier interface {
	Publish(ctx context.Context, event domain.Event) error
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, domain.Event) error { return nil }

// MultiNotifier fans an event out to every sink. It keeps going past
// failures and reports the first error, which callers ignore anyway.
type MultiNotifier []Notifier

func (m MultiNotifier) Publish(ctx context.Context, event domain.Event) error {
	var first error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
