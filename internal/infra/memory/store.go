package memory

import (
	"context"
	"sync"
	"time"

	"campus-quiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizRepository. Lifecycle
// checks run under the store mutex, so state transitions are atomic.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

func (s *QuizStore) Insert(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (s *QuizStore) Get(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.OwnerID == ownerID {
			out = append(out, cloneQuiz(quiz))
		}
	}
	return out, nil
}

func (s *QuizStore) Update(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (s *QuizStore) SetActive(_ context.Context, quizID, ownerID string, active bool, at time.Time) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok || quiz.OwnerID != ownerID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if quiz.IsActive == active {
		if active {
			return domain.Quiz{}, domain.ErrQuizActive
		}
		return domain.Quiz{}, domain.ErrQuizEnded
	}
	quiz.IsActive = active
	quiz.UpdatedAt = at
	stamp := at
	if active {
		quiz.EndedAt = nil
		quiz.ReactivatedAt = &stamp
	} else {
		quiz.EndedAt = &stamp
	}
	s.quizzes[quizID] = quiz
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) Delete(_ context.Context, quizID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok || quiz.OwnerID != ownerID {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *QuizStore) UpdateStats(_ context.Context, quizID string, stats domain.QuizStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.Stats = stats
	s.quizzes[quizID] = quiz
	return nil
}

// SubmissionStore is an in-memory implementation of app.SubmissionRepository.
type SubmissionStore struct {
	mu   sync.RWMutex
	subs map[string][]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{subs: make(map[string][]domain.Submission)}
}

// Insert holds the lock across the uniqueness check and the append, which is
// what makes concurrent duplicate submissions race to a single winner.
func (s *SubmissionStore) Insert(_ context.Context, sub *domain.Submission, soleAttempt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if soleAttempt {
		for _, existing := range s.subs[sub.QuizID] {
			if existing.StudentID == sub.StudentID {
				return domain.ErrDuplicateSubmission
			}
		}
	}
	s.subs[sub.QuizID] = append(s.subs[sub.QuizID], *sub)
	return nil
}

func (s *SubmissionStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := s.subs[quizID]
	out := make([]domain.Submission, len(subs))
	copy(out, subs)
	return out, nil
}

func (s *SubmissionStore) CountByQuiz(_ context.Context, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[quizID]), nil
}

func (s *SubmissionStore) HasStudentSubmission(_ context.Context, quizID, studentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs[quizID] {
		if sub.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *SubmissionStore) DeleteByQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, quizID)
	return nil
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	quiz.Questions = questions
	if quiz.Stats.GradeDistribution != nil {
		dist := make(map[string]int, len(quiz.Stats.GradeDistribution))
		for k, v := range quiz.Stats.GradeDistribution {
			dist[k] = v
		}
		quiz.Stats.GradeDistribution = dist
	}
	return quiz
}
