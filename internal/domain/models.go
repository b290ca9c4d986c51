package domain

import "time"

// Role is the caller role supplied by the identity collaborator.
type Role string

const (
	// RoleFaculty can create and manage quizzes.
	RoleFaculty Role = "faculty"
	// RoleAdmin has the same management rights as faculty.
	RoleAdmin Role = "admin"
	// RoleStudent can view and take quizzes.
	RoleStudent Role = "student"
)

// IsManager reports whether the role may own and manage quizzes.
func (r Role) IsManager() bool {
	return r == RoleFaculty || r == RoleAdmin
}

// Visibility controls who may open a quiz.
type Visibility string

const (
	// VisibilityPublic quizzes are open to any student.
	VisibilityPublic Visibility = "public"
	// VisibilityPrivate quizzes require the quiz password.
	VisibilityPrivate Visibility = "private"
)

// QuestionTypeMultipleChoice is the only precisely modeled question type.
const QuestionTypeMultipleChoice = "multiple-choice"

// Question is a single multiple-choice question. ID is its 1-based position
// in the quiz and is stable once the quiz has submissions.
type Question struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is a named, timed assessment owned by a faculty/admin identity.
type Quiz struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"ownerId"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Category         string     `json:"category"`
	Difficulty       string     `json:"difficulty"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Visibility       Visibility `json:"visibility"`
	Password         string     `json:"-"`
	AllowRetakes     bool       `json:"allowRetakes"`
	ShowResults      bool       `json:"showResultsImmediately"`
	IsActive         bool       `json:"isActive"`

	// Derived, cached on every write.
	TotalPoints    int `json:"totalPoints"`
	TotalQuestions int `json:"totalQuestions"`

	Stats QuizStats `json:"stats"`

	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	ReactivatedAt *time.Time `json:"reactivatedAt,omitempty"`
}

// RecalcTotals refreshes the cached TotalPoints and TotalQuestions fields.
func (q *Quiz) RecalcTotals() {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	q.TotalPoints = total
	q.TotalQuestions = len(q.Questions)
}

// QuizStats is the aggregate snapshot recomputed after each submission.
type QuizStats struct {
	Count             int            `json:"count"`
	AveragePercentage float64        `json:"averagePercentage"`
	MaxPercentage     float64        `json:"maxPercentage"`
	MinPercentage     float64        `json:"minPercentage"`
	PassRate          float64        `json:"passRate"`
	GradeDistribution map[string]int `json:"gradeDistribution,omitempty"`
	LastSubmissionAt  *time.Time     `json:"lastSubmissionAt,omitempty"`
}

// QuestionResult is the graded outcome for one question of a submission.
type QuestionResult struct {
	StudentAnswer string `json:"studentAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
	MaxPoints     int    `json:"maxPoints"`
}

// Submission is one student's graded attempt at a quiz.
type Submission struct {
	ID               string           `json:"id"`
	QuizID           string           `json:"quizId"`
	StudentID        string           `json:"studentId"`
	StudentName      string           `json:"studentName"`
	SubmitterID      string           `json:"submitterId"`
	Results          []QuestionResult `json:"results"`
	TotalScore       int              `json:"totalScore"`
	MaxScore         int              `json:"maxScore"`
	Percentage       float64          `json:"percentage"`
	LetterGrade      string           `json:"letterGrade"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	SubmittedAt      time.Time        `json:"submittedAt"`
}

// Event is published to the notification sink after lifecycle and submission
// operations. Delivery is best-effort.
type Event struct {
	Type       string    `json:"type"`
	QuizID     string    `json:"quizId"`
	OwnerID    string    `json:"ownerId"`
	StudentID  string    `json:"studentId,omitempty"`
	Stats      QuizStats `json:"stats"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Event types published to the notification sink.
const (
	EventSubmissionAccepted = "submission.accepted"
	EventQuizEnded          = "quiz.ended"
	EventQuizActivated      = "quiz.activated"
	EventQuizDeleted        = "quiz.deleted"
)
