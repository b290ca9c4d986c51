package app

import (
	"context"
	"fmt"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// QuizSpec is the caller-supplied payload for creating or updating a quiz.
type QuizSpec struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Category         string            `json:"category"`
	Difficulty       string            `json:"difficulty"`
	Questions        []QuestionSpec    `json:"questions"`
	TimeLimitMinutes int               `json:"timeLimitMinutes"`
	Visibility       domain.Visibility `json:"visibility"`
	Password         string            `json:"password"`
	AllowRetakes     bool              `json:"allowRetakes"`
	ShowResults      bool              `json:"showResultsImmediately"`
}

// QuestionSpec is one question in a QuizSpec.
type QuestionSpec struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
	Explanation   string   `json:"explanation"`
}

// UpdateResult reports the updated quiz and whether question edits were
// applied. Once a quiz has submissions, question edits are dropped and
// QuestionsModified is false.
type UpdateResult struct {
	Quiz               domain.Quiz
	QuestionsModified  bool
	QuestionsRequested bool
}

// LifecycleManager owns quiz creation and the Active/Ended state machine.
type LifecycleManager struct {
	quizzes  QuizRepository
	subs     SubmissionRepository
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

func NewLifecycleManager(quizzes QuizRepository, subs SubmissionRepository, notifier Notifier) *LifecycleManager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LifecycleManager{
		quizzes:  quizzes,
		subs:     subs,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create validates the spec and stores a new active quiz. Every violation is
// reported, not just the first.
func (m *LifecycleManager) Create(ctx context.Context, ownerID string, spec QuizSpec) (domain.Quiz, error) {
	if err := validateSpec(spec, true); err != nil {
		return domain.Quiz{}, err
	}

	now := m.now()
	quiz := domain.Quiz{
		ID:               m.newID(),
		OwnerID:          ownerID,
		Name:             spec.Name,
		Description:      spec.Description,
		Category:         spec.Category,
		Difficulty:       spec.Difficulty,
		Questions:        buildQuestions(spec.Questions),
		TimeLimitMinutes: spec.TimeLimitMinutes,
		Visibility:       normalizeVisibility(spec.Visibility),
		Password:         spec.Password,
		AllowRetakes:     spec.AllowRetakes,
		ShowResults:      spec.ShowResults,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	quiz.RecalcTotals()

	if err := m.quizzes.Insert(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Update applies metadata edits, and question edits only while the quiz has
// no submissions.
func (m *LifecycleManager) Update(ctx context.Context, ownerID, quizID string, spec QuizSpec) (UpdateResult, error) {
	quiz, err := m.ownedQuiz(ctx, ownerID, quizID)
	if err != nil {
		return UpdateResult{}, err
	}

	count, err := m.subs.CountByQuiz(ctx, quizID)
	if err != nil {
		return UpdateResult{}, err
	}
	applyQuestions := count == 0 && len(spec.Questions) > 0

	if err := validateSpec(spec, applyQuestions); err != nil {
		return UpdateResult{}, err
	}

	quiz.Name = spec.Name
	quiz.Description = spec.Description
	quiz.Category = spec.Category
	quiz.Difficulty = spec.Difficulty
	quiz.TimeLimitMinutes = spec.TimeLimitMinutes
	quiz.Visibility = normalizeVisibility(spec.Visibility)
	quiz.Password = spec.Password
	quiz.AllowRetakes = spec.AllowRetakes
	quiz.ShowResults = spec.ShowResults
	if applyQuestions {
		quiz.Questions = buildQuestions(spec.Questions)
	}
	quiz.RecalcTotals()
	quiz.UpdatedAt = m.now()

	if err := m.quizzes.Update(ctx, &quiz); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{
		Quiz:               quiz,
		QuestionsModified:  applyQuestions,
		QuestionsRequested: len(spec.Questions) > 0,
	}, nil
}

// End stops a quiz from accepting submissions. Ending an ended quiz is a
// conflict, not a no-op.
func (m *LifecycleManager) End(ctx context.Context, ownerID, quizID string) (domain.Quiz, error) {
	quiz, err := m.quizzes.SetActive(ctx, quizID, ownerID, false, m.now())
	if err != nil {
		return domain.Quiz{}, err
	}
	m.publish(ctx, domain.EventQuizEnded, quiz, "")
	return quiz, nil
}

// Activate reopens an ended quiz, clearing its end timestamp.
func (m *LifecycleManager) Activate(ctx context.Context, ownerID, quizID string) (domain.Quiz, error) {
	quiz, err := m.quizzes.SetActive(ctx, quizID, ownerID, true, m.now())
	if err != nil {
		return domain.Quiz{}, err
	}
	m.publish(ctx, domain.EventQuizActivated, quiz, "")
	return quiz, nil
}

// Delete removes a quiz that has no submissions.
func (m *LifecycleManager) Delete(ctx context.Context, ownerID, quizID string) error {
	quiz, err := m.ownedQuiz(ctx, ownerID, quizID)
	if err != nil {
		return err
	}
	count, err := m.subs.CountByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrHasSubmissions
	}
	if err := m.quizzes.Delete(ctx, quizID, ownerID); err != nil {
		return err
	}
	m.publish(ctx, domain.EventQuizDeleted, quiz, "")
	return nil
}

// Get returns an owned quiz with its full content.
func (m *LifecycleManager) Get(ctx context.Context, ownerID, quizID string) (domain.Quiz, error) {
	return m.ownedQuiz(ctx, ownerID, quizID)
}

// ListByOwner returns all quizzes owned by the caller.
func (m *LifecycleManager) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	return m.quizzes.ListByOwner(ctx, ownerID)
}

// Submissions returns the full submission set of an owned quiz.
func (m *LifecycleManager) Submissions(ctx context.Context, ownerID, quizID string) ([]domain.Submission, error) {
	if _, err := m.ownedQuiz(ctx, ownerID, quizID); err != nil {
		return nil, err
	}
	return m.subs.ListByQuiz(ctx, quizID)
}

func (m *LifecycleManager) ownedQuiz(ctx context.Context, ownerID, quizID string) (domain.Quiz, error) {
	quiz, err := m.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != ownerID {
		// Not leaked as an authorization failure.
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (m *LifecycleManager) publish(ctx context.Context, eventType string, quiz domain.Quiz, studentID string) {
	_ = m.notifier.Publish(ctx, domain.Event{
		Type:       eventType,
		QuizID:     quiz.ID,
		OwnerID:    quiz.OwnerID,
		StudentID:  studentID,
		Stats:      quiz.Stats,
		OccurredAt: m.now(),
	})
}

func normalizeVisibility(v domain.Visibility) domain.Visibility {
	if v == domain.VisibilityPrivate {
		return domain.VisibilityPrivate
	}
	return domain.VisibilityPublic
}

func buildQuestions(specs []QuestionSpec) []domain.Question {
	questions := make([]domain.Question, 0, len(specs))
	for i, q := range specs {
		points := q.Points
		if points == 0 {
			points = 1
		}
		qType := q.Type
		if qType == "" {
			qType = domain.QuestionTypeMultipleChoice
		}
		questions = append(questions, domain.Question{
			ID:            i + 1,
			Text:          q.Text,
			Type:          qType,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
			Explanation:   q.Explanation,
		})
	}
	return questions
}

func validateSpec(spec QuizSpec, withQuestions bool) error {
	var violations []string
	if spec.Name == "" {
		violations = append(violations, "name must not be empty")
	}
	if spec.TimeLimitMinutes <= 0 {
		violations = append(violations, "timeLimitMinutes must be positive")
	}
	if spec.Visibility == domain.VisibilityPrivate && spec.Password == "" {
		violations = append(violations, "private quizzes require a password")
	}
	if withQuestions {
		if len(spec.Questions) == 0 {
			violations = append(violations, "at least one question is required")
		}
		for i, q := range spec.Questions {
			violations = append(violations, validateQuestion(i, q)...)
		}
	}
	return domain.Validation(violations)
}

func validateQuestion(i int, q QuestionSpec) []string {
	var violations []string
	label := fmt.Sprintf("question %d", i+1)
	if q.Text == "" {
		violations = append(violations, label+": text must not be empty")
	}
	if q.Type == "" || q.Type == domain.QuestionTypeMultipleChoice {
		if len(q.Options) < 2 || len(q.Options) > 6 {
			violations = append(violations, label+": needs between 2 and 6 options")
		}
		for _, opt := range q.Options {
			if opt == "" {
				violations = append(violations, label+": options must not be empty")
				break
			}
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.CorrectAnswer {
				found = true
				break
			}
		}
		if q.CorrectAnswer == "" || !found {
			violations = append(violations, label+": correctAnswer must match one of the options")
		}
	}
	if q.Points < 0 || q.Points > 10 {
		violations = append(violations, label+": points must be between 1 and 10")
	}
	return violations
}
