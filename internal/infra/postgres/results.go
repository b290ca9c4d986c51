package postgres

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultsReader streams the submission result projection straight from
// Postgres, bypassing the document mapping; used by the export CLI command.
type ResultsReader struct {
	pool *pgxpool.Pool
}

func NewResultsReader(pool *pgxpool.Pool) *ResultsReader {
	return &ResultsReader{pool: pool}
}

// ExportCSV writes one row per submission of the quiz, ordered by submission
// time: studentName, studentId, score, percentage, grade, timeSpent,
// submittedAt.
func (r *ResultsReader) ExportCSV(ctx context.Context, quizID string, w io.Writer) error {
	rows, err := r.pool.Query(ctx, `
		SELECT student_name, student_id, total_score, percentage, letter_grade,
		       time_spent_seconds, submitted_at
		FROM submissions
		WHERE quiz_id = $1
		ORDER BY submitted_at ASC`, quizID)
	if err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"studentName", "studentId", "score", "percentage", "grade", "timeSpent", "submittedAt"}); err != nil {
		return err
	}
	for rows.Next() {
		var (
			name, studentID, grade string
			score, timeSpent       int
			percentage             float64
			submittedAt            time.Time
		)
		if err := rows.Scan(&name, &studentID, &score, &percentage, &grade, &timeSpent, &submittedAt); err != nil {
			return fmt.Errorf("scan result: %w", err)
		}
		record := []string{
			name,
			studentID,
			strconv.Itoa(score),
			strconv.FormatFloat(percentage, 'f', 2, 64),
			grade,
			strconv.Itoa(timeSpent),
			submittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate results: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
