package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

// Handler exposes the quiz engine over REST. Identity arrives from the
// authentication collaborator as X-User-ID / X-User-Role headers; the engine
// never authenticates.
type Handler struct {
	manager *app.LifecycleManager
	gate    *app.AccessGate
	service *app.SubmissionService
	feed    *FeedHandler
}

func NewHandler(manager *app.LifecycleManager, gate *app.AccessGate, service *app.SubmissionService, feed *FeedHandler) *Handler {
	return &Handler{manager: manager, gate: gate, service: service, feed: feed}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("PUT /quizzes/{id}", h.updateQuiz)
	mux.HandleFunc("DELETE /quizzes/{id}", h.deleteQuiz)
	mux.HandleFunc("POST /quizzes/{id}/end", h.endQuiz)
	mux.HandleFunc("POST /quizzes/{id}/activate", h.activateQuiz)
	mux.HandleFunc("POST /quizzes/{id}/submissions", h.submit)
	mux.HandleFunc("GET /quizzes/{id}/submissions", h.listSubmissions)
	mux.HandleFunc("GET /quizzes/{id}/export", h.exportResults)
	if h.feed != nil {
		mux.HandleFunc("GET /quizzes/{id}/feed", h.feed.ServeFeed)
	}
}

type identity struct {
	userID string
	role   domain.Role
}

func callerIdentity(r *http.Request) (identity, bool) {
	userID := r.Header.Get("X-User-ID")
	role := domain.Role(r.Header.Get("X-User-Role"))
	if userID == "" || role == "" {
		return identity{}, false
	}
	return identity{userID: userID, role: role}, true
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	if !caller.role.IsManager() {
		writeStatus(w, http.StatusForbidden, "only faculty can create quizzes")
		return
	}
	var spec app.QuizSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	quiz, err := h.manager.Create(r.Context(), caller.userID, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	if !caller.role.IsManager() {
		writeStatus(w, http.StatusForbidden, "only faculty can list their quizzes")
		return
	}
	quizzes, err := h.manager.ListByOwner(r.Context(), caller.userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	access, err := h.gate.Resolve(r.Context(), caller.role, caller.userID, r.PathValue("id"), r.URL.Query().Get("password"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	var spec app.QuizSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.manager.Update(r.Context(), caller.userID, r.PathValue("id"), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Quiz               domain.Quiz `json:"quiz"`
		QuestionsModified  bool        `json:"questionsModified"`
		QuestionsRequested bool        `json:"questionsRequested"`
	}{result.Quiz, result.QuestionsModified, result.QuestionsRequested})
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	if err := h.manager.Delete(r.Context(), caller.userID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) endQuiz(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.End)
}

func (h *Handler) activateQuiz(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.manager.Activate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, ownerID, quizID string) (domain.Quiz, error)) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	quiz, err := op(r.Context(), caller.userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// submitReceipt is the taker-facing response. When the quiz withholds
// immediate results, the graded fields stay empty.
type submitReceipt struct {
	SubmissionID    string                  `json:"submissionId"`
	SubmittedAt     string                  `json:"submittedAt"`
	ResultsWithheld bool                    `json:"resultsWithheld"`
	TotalScore      *int                    `json:"totalScore,omitempty"`
	MaxScore        *int                    `json:"maxScore,omitempty"`
	Percentage      *float64                `json:"percentage,omitempty"`
	LetterGrade     string                  `json:"letterGrade,omitempty"`
	Results         []domain.QuestionResult `json:"results,omitempty"`
	StatsRefreshed  bool                    `json:"statsRefreshed"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	var req app.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := h.service.Submit(r.Context(), caller.userID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt := submitReceipt{
		SubmissionID:    result.Submission.ID,
		SubmittedAt:     result.Submission.SubmittedAt.UTC().Format(time.RFC3339),
		ResultsWithheld: result.ResultsWithheld,
		StatsRefreshed:  result.StatsRefreshed,
	}
	if !result.ResultsWithheld {
		receipt.TotalScore = &result.Submission.TotalScore
		receipt.MaxScore = &result.Submission.MaxScore
		receipt.Percentage = &result.Submission.Percentage
		receipt.LetterGrade = result.Submission.LetterGrade
		receipt.Results = result.Submission.Results
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	subs, err := h.manager.Submissions(r.Context(), caller.userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) exportResults(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	subs, err := h.manager.Submissions(r.Context(), caller.userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	if err := app.WriteResultsCSV(w, subs); err != nil {
		log.Printf("export csv: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      "validation failed",
			"violations": verr.Violations,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrWrongPassword), errors.Is(err, domain.ErrQuizInactive):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrQuizEnded), errors.Is(err, domain.ErrQuizActive),
		errors.Is(err, domain.ErrHasSubmissions), errors.Is(err, domain.ErrDuplicateSubmission):
		status = http.StatusConflict
	default:
		var serr *domain.StorageError
		if errors.As(err, &serr) {
			status = http.StatusServiceUnavailable
		}
	}
	writeStatus(w, status, err.Error())
}
