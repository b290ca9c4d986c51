package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"campus-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID               string            `bun:"id,pk"`
	OwnerID          string            `bun:"owner_id,notnull"`
	Name             string            `bun:"name,notnull"`
	Description      string            `bun:"description"`
	Category         string            `bun:"category"`
	Difficulty       string            `bun:"difficulty"`
	Questions        []domain.Question `bun:"questions,type:jsonb"`
	TimeLimitMinutes int               `bun:"time_limit_minutes,notnull"`
	Visibility       string            `bun:"visibility,notnull"`
	Password         string            `bun:"password"`
	AllowRetakes     bool              `bun:"allow_retakes"`
	ShowResults      bool              `bun:"show_results"`
	IsActive         bool              `bun:"is_active"`
	TotalPoints      int               `bun:"total_points"`
	TotalQuestions   int               `bun:"total_questions"`
	Stats            domain.QuizStats  `bun:"stats,type:jsonb"`
	CreatedAt        time.Time         `bun:"created_at,notnull"`
	UpdatedAt        time.Time         `bun:"updated_at,notnull"`
	EndedAt          *time.Time        `bun:"ended_at"`
	ReactivatedAt    *time.Time        `bun:"reactivated_at"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID               string                  `bun:"id,pk"`
	QuizID           string                  `bun:"quiz_id,notnull"`
	StudentID        string                  `bun:"student_id,notnull"`
	StudentName      string                  `bun:"student_name,notnull"`
	SubmitterID      string                  `bun:"submitter_id"`
	Results          []domain.QuestionResult `bun:"results,type:jsonb"`
	TotalScore       int                     `bun:"total_score"`
	MaxScore         int                     `bun:"max_score"`
	Percentage       float64                 `bun:"percentage"`
	LetterGrade      string                  `bun:"letter_grade"`
	TimeSpentSeconds int                     `bun:"time_spent_seconds"`
	// SoleAttempt marks rows covered by the partial unique index on
	// (quiz_id, student_id); it is true when the quiz disallows retakes.
	SoleAttempt bool      `bun:"sole_attempt,notnull"`
	SubmittedAt time.Time `bun:"submitted_at,notnull"`
}

// QuizStore implements app.QuizRepository on Postgres via bun.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) Insert(ctx context.Context, quiz *domain.Quiz) error {
	row := toQuizRow(*quiz)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Storage("insert quiz", err)
	}
	return nil
}

func (s *QuizStore) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	var row quizRow
	err := s.db.NewSelect().Model(&row).Where("q.id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, domain.Storage("get quiz", err)
	}
	return fromQuizRow(row), nil
}

func (s *QuizStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	var rows []quizRow
	err := s.db.NewSelect().Model(&rows).
		Where("q.owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, domain.Storage("list quizzes", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromQuizRow(row))
	}
	return out, nil
}

func (s *QuizStore) Update(ctx context.Context, quiz *domain.Quiz) error {
	row := toQuizRow(*quiz)
	res, err := s.db.NewUpdate().Model(&row).WherePK().Exec(ctx)
	if err != nil {
		return domain.Storage("update quiz", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// SetActive runs the state check and the write in one transaction, with the
// quiz row locked, so concurrent transitions serialize.
func (s *QuizStore) SetActive(ctx context.Context, quizID, ownerID string, active bool, at time.Time) (domain.Quiz, error) {
	var out domain.Quiz
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row quizRow
		err := tx.NewSelect().Model(&row).
			Where("q.id = ?", quizID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return domain.Storage("lock quiz", err)
		}
		if row.OwnerID != ownerID {
			return domain.ErrQuizNotFound
		}
		if row.IsActive == active {
			if active {
				return domain.ErrQuizActive
			}
			return domain.ErrQuizEnded
		}

		row.IsActive = active
		row.UpdatedAt = at
		stamp := at
		if active {
			row.EndedAt = nil
			row.ReactivatedAt = &stamp
		} else {
			row.EndedAt = &stamp
		}
		if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
			return domain.Storage("set active", err)
		}
		out = fromQuizRow(row)
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return out, nil
}

func (s *QuizStore) Delete(ctx context.Context, quizID, ownerID string) error {
	res, err := s.db.NewDelete().Model((*quizRow)(nil)).
		Where("id = ? AND owner_id = ?", quizID, ownerID).
		Exec(ctx)
	if err != nil {
		return domain.Storage("delete quiz", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) UpdateStats(ctx context.Context, quizID string, stats domain.QuizStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return domain.Storage("encode stats", err)
	}
	res, err := s.db.NewUpdate().Model((*quizRow)(nil)).
		Set("stats = ?::jsonb", string(data)).
		Where("id = ?", quizID).
		Exec(ctx)
	if err != nil {
		return domain.Storage("update stats", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// SubmissionStore implements app.SubmissionRepository on Postgres.
type SubmissionStore struct {
	db *bun.DB
}

func NewSubmissionStore(db *bun.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// Insert relies on the partial unique index over sole_attempt rows: two
// concurrent no-retake submissions for the same student hit the index, one
// insert wins, the other reports zero rows affected.
func (s *SubmissionStore) Insert(ctx context.Context, sub *domain.Submission, soleAttempt bool) error {
	row := toSubmissionRow(*sub, soleAttempt)
	query := s.db.NewInsert().Model(&row)
	if soleAttempt {
		query = query.On("CONFLICT (quiz_id, student_id) WHERE sole_attempt DO NOTHING")
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return domain.Storage("insert submission", err)
	}
	if affected, _ := res.RowsAffected(); soleAttempt && affected == 0 {
		return domain.ErrDuplicateSubmission
	}
	return nil
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().Model(&rows).
		Where("s.quiz_id = ?", quizID).
		Order("submitted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.Storage("list submissions", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromSubmissionRow(row))
	}
	return out, nil
}

func (s *SubmissionStore) CountByQuiz(ctx context.Context, quizID string) (int, error) {
	count, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("quiz_id = ?", quizID).
		Count(ctx)
	if err != nil {
		return 0, domain.Storage("count submissions", err)
	}
	return count, nil
}

func (s *SubmissionStore) HasStudentSubmission(ctx context.Context, quizID, studentID string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Exists(ctx)
	if err != nil {
		return false, domain.Storage("check submission", err)
	}
	return exists, nil
}

func (s *SubmissionStore) DeleteByQuiz(ctx context.Context, quizID string) error {
	if _, err := s.db.NewDelete().Model((*submissionRow)(nil)).
		Where("quiz_id = ?", quizID).
		Exec(ctx); err != nil {
		return domain.Storage("delete submissions", err)
	}
	return nil
}

func toQuizRow(quiz domain.Quiz) quizRow {
	return quizRow{
		ID:               quiz.ID,
		OwnerID:          quiz.OwnerID,
		Name:             quiz.Name,
		Description:      quiz.Description,
		Category:         quiz.Category,
		Difficulty:       quiz.Difficulty,
		Questions:        quiz.Questions,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Visibility:       string(quiz.Visibility),
		Password:         quiz.Password,
		AllowRetakes:     quiz.AllowRetakes,
		ShowResults:      quiz.ShowResults,
		IsActive:         quiz.IsActive,
		TotalPoints:      quiz.TotalPoints,
		TotalQuestions:   quiz.TotalQuestions,
		Stats:            quiz.Stats,
		CreatedAt:        quiz.CreatedAt,
		UpdatedAt:        quiz.UpdatedAt,
		EndedAt:          quiz.EndedAt,
		ReactivatedAt:    quiz.ReactivatedAt,
	}
}

func fromQuizRow(row quizRow) domain.Quiz {
	return domain.Quiz{
		ID:               row.ID,
		OwnerID:          row.OwnerID,
		Name:             row.Name,
		Description:      row.Description,
		Category:         row.Category,
		Difficulty:       row.Difficulty,
		Questions:        row.Questions,
		TimeLimitMinutes: row.TimeLimitMinutes,
		Visibility:       domain.Visibility(row.Visibility),
		Password:         row.Password,
		AllowRetakes:     row.AllowRetakes,
		ShowResults:      row.ShowResults,
		IsActive:         row.IsActive,
		TotalPoints:      row.TotalPoints,
		TotalQuestions:   row.TotalQuestions,
		Stats:            row.Stats,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		EndedAt:          row.EndedAt,
		ReactivatedAt:    row.ReactivatedAt,
	}
}

func toSubmissionRow(sub domain.Submission, soleAttempt bool) submissionRow {
	return submissionRow{
		ID:               sub.ID,
		QuizID:           sub.QuizID,
		StudentID:        sub.StudentID,
		StudentName:      sub.StudentName,
		SubmitterID:      sub.SubmitterID,
		Results:          sub.Results,
		TotalScore:       sub.TotalScore,
		MaxScore:         sub.MaxScore,
		Percentage:       sub.Percentage,
		LetterGrade:      sub.LetterGrade,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		SoleAttempt:      soleAttempt,
		SubmittedAt:      sub.SubmittedAt,
	}
}

func fromSubmissionRow(row submissionRow) domain.Submission {
	return domain.Submission{
		ID:               row.ID,
		QuizID:           row.QuizID,
		StudentID:        row.StudentID,
		StudentName:      row.StudentName,
		SubmitterID:      row.SubmitterID,
		Results:          row.Results,
		TotalScore:       row.TotalScore,
		MaxScore:         row.MaxScore,
		Percentage:       row.Percentage,
		LetterGrade:      row.LetterGrade,
		TimeSpentSeconds: row.TimeSpentSeconds,
		SubmittedAt:      row.SubmittedAt,
	}
}
