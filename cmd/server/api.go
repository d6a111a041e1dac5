package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Tristan28-web/Edu-Track-sub000/internal/curriculum"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/engine"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/identity"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/progress"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/quiz"
	"github.com/Tristan28-web/Edu-Track-sub000/internal/ranking"
)

// handlers exposes the engine over a small JSON API. All persistence and
// identity decisions stay in the collaborators; this layer only decodes,
// dispatches, and maps errors to status codes.
type handlers struct {
	eng       *engine.Engine
	catalog   *curriculum.Catalog
	ranker    *ranking.Engine
	rankCache *ranking.Cache
	roster    []ranking.Student
	store     progress.Store
	identity  identity.Provider
}

func (h *handlers) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/attempts", h.handleBeginAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/submit", h.handleSubmit)
	mux.HandleFunc("GET /api/students/{id}/overview", h.handleOverview)
	mux.HandleFunc("GET /api/students/{id}/quarters", h.handleQuarters)
	mux.HandleFunc("POST /api/students/{id}/quarters/{period}", h.handleToggleQuarter)
	mux.HandleFunc("GET /api/students/{id}/topics", h.handleTopics)
	mux.HandleFunc("DELETE /api/students/{id}/progress", h.handleReset)
	mux.HandleFunc("GET /api/leaderboard", h.handleLeaderboard)
}

func (h *handlers) handleBeginAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		QuizID    string `json:"quiz_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.mayActFor(r, req.StudentID) {
		writeError(w, http.StatusForbidden, "students may only act on their own attempts")
		return
	}

	att, questions, err := h.eng.BeginAttempt(r.Context(), req.StudentID, req.QuizID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"attempt_id": att.ID,
		"token":      att.Token,
		"deadline":   att.Deadline,
		"questions":  presentQuestions(questions),
	})
}

func (h *handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID     string                 `json:"student_id"`
		QuizID        string                 `json:"quiz_id"`
		Token         string                 `json:"token"`
		GradingPeriod string                 `json:"grading_period"`
		Answers       map[string]quiz.Answer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.mayActFor(r, req.StudentID) {
		writeError(w, http.StatusForbidden, "students may only act on their own attempts")
		return
	}

	score, updated, err := h.eng.SubmitQuiz(r.Context(), engine.Submission{
		AttemptID:     r.PathValue("id"),
		Token:         req.Token,
		StudentID:     req.StudentID,
		QuizID:        req.QuizID,
		GradingPeriod: req.GradingPeriod,
		Answers:       req.Answers,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"correct":    score.CorrectCount,
		"total":      score.Total,
		"percentage": score.Percentage,
		"empty_quiz": score.EmptyQuiz,
		"progress":   updated,
	})
}

func (h *handlers) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.eng.StudentOverview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *handlers) handleQuarters(w http.ResponseWriter, r *http.Request) {
	averages, err := h.eng.QuarterAverages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, averages)
}

func (h *handlers) handleToggleQuarter(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil || (session.Role != identity.RoleTeacher && session.Role != identity.RoleAdmin) {
		writeError(w, http.StatusForbidden, "teacher role required")
		return
	}

	var req struct {
		Closed bool `json:"closed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.eng.SetQuarterClosed(r.Context(), r.PathValue("id"), r.PathValue("period"), req.Closed); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) handleTopics(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	type topicState struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
		Order int    `json:"order"`
		State string `json:"state"`
	}
	states, err := h.eng.TopicStates(r.Context(), studentID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var out []topicState
	for _, t := range h.catalog.Topics() {
		out = append(out, topicState{Slug: t.Slug, Title: t.Title, Order: t.Order, State: string(states[t.Slug])})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	session, err := h.session(r)
	if err != nil || (session.Role != identity.RoleAdmin && session.Role != identity.RolePrincipal) {
		writeError(w, http.StatusForbidden, "admin or principal role required")
		return
	}

	if err := h.eng.ResetStudent(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	filters := ranking.Filters{
		Topic:   r.URL.Query().Get("topic"),
		Grade:   r.URL.Query().Get("grade"),
		Section: r.URL.Query().Get("section"),
	}

	if entries, hit, err := h.rankCache.Get(r.Context(), filters); err != nil {
		slog.Warn("leaderboard cache read failed", "error", err)
	} else if hit {
		writeJSON(w, http.StatusOK, entries)
		return
	}

	progressByStudent := make(map[string]map[string]progress.TopicProgress, len(h.roster))
	resultsByStudent := make(map[string][]progress.QuizResult, len(h.roster))
	for _, s := range h.roster {
		byTopic, err := h.store.Progress(r.Context(), s.ID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		results, err := h.store.Results(r.Context(), s.ID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		progressByStudent[s.ID] = byTopic
		resultsByStudent[s.ID] = results
	}

	entries := h.ranker.Rank(h.roster, progressByStudent, resultsByStudent, filters)
	if err := h.rankCache.Put(r.Context(), filters, entries); err != nil {
		slog.Warn("leaderboard cache write failed", "error", err)
	}
	writeJSON(w, http.StatusOK, entries)
}

// mayActFor reports whether the caller may begin or submit attempts for
// studentID. Sessions with the student role are held to their own id;
// staff and unidentified internal callers pass through.
func (h *handlers) mayActFor(r *http.Request, studentID string) bool {
	session, err := h.session(r)
	if err != nil {
		return true
	}
	if session.Role == identity.RoleStudent {
		return session.UserID == studentID
	}
	return true
}

// session resolves the caller's identity: the configured provider first,
// overridable per request by the trusted proxy headers.
func (h *handlers) session(r *http.Request) (identity.Session, error) {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return identity.Session{
			UserID: userID,
			Role:   identity.Role(r.Header.Get("X-User-Role")),
		}, nil
	}
	if h.identity == nil {
		return identity.Session{}, errors.New("no identity provider")
	}
	return h.identity.Current(r.Context())
}

// presentQuestions strips answer keys before questions leave the server.
func presentQuestions(questions []quiz.Question) []map[string]any {
	out := make([]map[string]any, 0, len(questions))
	for _, q := range questions {
		item := map[string]any{
			"id":           q.ID,
			"questionType": q.Type,
			"prompt":       q.Prompt,
		}
		if q.Type == quiz.MultipleChoice {
			item["options"] = q.Options
		}
		out = append(out, item)
	}
	return out
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrTopicLocked), errors.Is(err, engine.ErrAttemptMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrUnknownQuiz), errors.Is(err, engine.ErrUnknownAttempt):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, quiz.ErrAlreadySubmitted), errors.Is(err, progress.ErrQuarterClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
