package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mooddiary/apiserver/types"
)

// DiaryService is the diary use-case surface the diary routes need.
type DiaryService interface {
	List(ctx context.Context, userID int) ([]types.Diary, error)
	GetOwned(ctx context.Context, userID, diaryID int) (types.Diary, error)
	Create(ctx context.Context, userID int, in types.DiaryInput) (types.Diary, error)
	Update(ctx context.Context, userID, diaryID int, patch types.DiaryPatch) (types.Diary, error)
}

// DiaryHandler provides HTTP handlers for diaries.
type DiaryHandler struct {
	diaries DiaryService
	logger  *slog.Logger
}

func NewDiaryHandler(diaries DiaryService, logger *slog.Logger) *DiaryHandler {
	return &DiaryHandler{diaries: diaries, logger: logger}
}

// DiaryRouter registers diary routes. Every route requires authentication.
func DiaryRouter(r chi.Router, diaries DiaryService, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewDiaryHandler(diaries, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListDiaries)
	r.Post("/", handler.CreateDiary)
	r.Put("/{diaryID}", handler.UpdateDiary)
}

func (h *DiaryHandler) ListDiaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	diaries, err := h.diaries.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if diaries == nil {
		diaries = []types.Diary{}
	}

	writeJSON(w, http.StatusOK, diaries)
}

func (h *DiaryHandler) CreateDiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var in types.DiaryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.diaries.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *DiaryHandler) UpdateDiary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	diaryID, err := parseDiaryID(r)
	if err != nil {
		// Non-numeric ids are treated as unknown diaries.
		writeError(w, http.StatusNotFound, "Diary not found")
		return
	}

	// Unknown and foreign diaries are reported before the body is read.
	if _, err := h.diaries.GetOwned(r.Context(), userID, diaryID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var patch types.DiaryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.diaries.Update(r.Context(), userID, diaryID, patch)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *DiaryHandler) caller(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Missing or invalid token")
		return 0, false
	}
	return userID, true
}

func parseDiaryID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "diaryID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid diary id")
	}
	return id, nil
}
