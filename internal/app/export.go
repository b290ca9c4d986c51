package app

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"campus-quiz-service/internal/domain"
)

// WriteResultsCSV renders the read-side results projection: one row per
// submission with studentName, studentId, score, percentage, grade,
// timeSpent, submittedAt.
func WriteResultsCSV(w io.Writer, subs []domain.Submission) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"studentName", "studentId", "score", "percentage", "grade", "timeSpent", "submittedAt"}); err != nil {
		return err
	}
	for _, sub := range subs {
		record := []string{
			sub.StudentName,
			sub.StudentID,
			strconv.Itoa(sub.TotalScore),
			strconv.FormatFloat(sub.Percentage, 'f', 2, 64),
			sub.LetterGrade,
			strconv.Itoa(sub.TimeSpentSeconds),
			sub.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
