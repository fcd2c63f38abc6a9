package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adaptiveq/engine"
)

type handler struct {
	engine       adaptiveq.Engine
	maxFileBytes int64
}

func newHandler(e adaptiveq.Engine, maxFileBytes int) *handler {
	return &handler{engine: e, maxFileBytes: int64(maxFileBytes)}
}

// POST /documents
// Accepts a multipart file upload alongside title/topic/grade_levels/uploader
// form fields.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileBytes)
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max_file_bytes (%d)", h.maxFileBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a 'file' field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	if header.Size > h.maxFileBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds max_file_bytes (%d)", h.maxFileBytes))
		return
	}

	safeName := filepath.Base(header.Filename)
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("adaptiveq-upload-%d-%s", time.Now().UnixNano(), safeName))
	dst, err := os.Create(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()
	defer os.Remove(tmpPath)

	title := r.FormValue("title")
	topic := r.FormValue("topic")
	uploader := r.FormValue("uploader")
	grades, err := parseIntList(r.FormValue("grade_levels"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "grade_levels must be a comma-separated list of integers")
		return
	}

	doc, err := h.engine.Upload(ctx, tmpPath, title, topic, grades, uploader)
	if err != nil {
		writeEngineError(w, err, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GET /documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.engine.GetDocument(r.Context(), id)
	if err != nil {
		writeEngineError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	cascade := r.URL.Query().Get("cascade") != "false"

	if err := h.engine.DeleteDocument(r.Context(), id, cascade); err != nil {
		writeEngineError(w, err, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /documents/{id}/generate
func (h *handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var req struct {
		GradeLevels []int    `json:"grade_levels"`
		NPerGrade   int      `json:"n_per_grade"`
		Types       []string `json:"question_types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.GradeLevels) == 0 {
		writeError(w, http.StatusBadRequest, "grade_levels is required")
		return
	}
	if req.NPerGrade <= 0 {
		req.NPerGrade = 5
	}

	ids, err := h.engine.Generate(ctx, id, req.GradeLevels, req.NPerGrade, req.Types)
	if err != nil {
		writeEngineError(w, err, "generation failed")
		return
	}

	for range ids {
		questionsGenerated.WithLabelValues("generated").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"question_ids": ids})
}

// GET /adaptive/next?learner_id=&unit_id=&topic=&grade=
func (h *handler) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	learnerID, unitID, topic := q.Get("learner_id"), q.Get("unit_id"), q.Get("topic")
	if learnerID == "" || unitID == "" {
		writeError(w, http.StatusBadRequest, "learner_id and unit_id are required")
		return
	}
	grade, err := strconv.Atoi(q.Get("grade"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "grade must be an integer")
		return
	}

	result, err := h.engine.NextQuestion(r.Context(), learnerID, unitID, topic, grade)
	if err != nil {
		writeEngineError(w, err, "no question available")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question":          result.Question,
		"ability":           result.Ability,
		"target_difficulty": result.TargetDifficulty,
	})
}

// POST /adaptive/answer
func (h *handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LearnerID   string `json:"learner_id"`
		UnitID      string `json:"unit_id"`
		QuestionID  string `json:"question_id"`
		Answer      string `json:"answer"`
		TimeTakenMs int    `json:"time_taken_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.LearnerID == "" || req.UnitID == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "learner_id, unit_id, and question_id are required")
		return
	}

	result, err := h.engine.SubmitAnswer(r.Context(), req.LearnerID, req.UnitID, req.QuestionID, req.Answer, req.TimeTakenMs)
	if err != nil {
		writeEngineError(w, err, "submit answer failed")
		return
	}

	answersSubmitted.WithLabelValues(strconv.FormatBool(result.IsCorrect)).Inc()
	writeJSON(w, http.StatusOK, result)
}

// GET /adaptive/analytics?learner_id=&unit_id=
func (h *handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	learnerID, unitID := q.Get("learner_id"), q.Get("unit_id")
	if learnerID == "" || unitID == "" {
		writeError(w, http.StatusBadRequest, "learner_id and unit_id are required")
		return
	}

	analytics, err := h.engine.Analytics(r.Context(), learnerID, unitID)
	if err != nil {
		writeEngineError(w, err, "analytics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// GET /healthz
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := h.engine.IndexSize(r.Context())
	if err != nil {
		slog.Error("healthz index size", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "index_size": 0})
		return
	}
	indexSize.Set(float64(n))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "index_size": n})
}

func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// writeEngineError maps a known adaptiveq sentinel to its HTTP status; any
// other error is treated as an internal failure and its detail is logged
// but not echoed back to the client.
func writeEngineError(w http.ResponseWriter, err error, fallbackMsg string) {
	status, msg := classifyEngineError(err)
	if status == http.StatusInternalServerError {
		slog.Error(fallbackMsg, "error", err)
		msg = fallbackMsg
	}
	writeError(w, status, msg)
}

func classifyEngineError(err error) (int, string) {
	switch {
	case errors.Is(err, adaptiveq.ErrDocumentNotFound), errors.Is(err, adaptiveq.ErrQuestionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, adaptiveq.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, adaptiveq.ErrContentTooShort):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, adaptiveq.ErrDocumentNotReady), errors.Is(err, adaptiveq.ErrInvalidConfig):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, adaptiveq.ErrNoQuestionsAvailable):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, adaptiveq.ErrStaleRecord):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
