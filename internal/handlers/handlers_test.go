package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mooddiary/apiserver/internal/services"
	"github.com/mooddiary/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	registerErr error
	loginRes    services.LoginResult
	loginErr    error

	registered []string
}

func (s *stubAuth) Register(_ context.Context, username, _ string) (types.User, error) {
	if s.registerErr != nil {
		return types.User{}, s.registerErr
	}
	s.registered = append(s.registered, username)
	return types.User{ID: len(s.registered), Username: username}, nil
}

func (s *stubAuth) Login(context.Context, string, string) (services.LoginResult, error) {
	return s.loginRes, s.loginErr
}

type stubTokens map[string]int

func (s stubTokens) Parse(token string) (int, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

type stubDiaries struct {
	list      []types.Diary
	listErr   error
	createErr error
	getErr    error
	updateErr error

	lastUser  int
	lastID    int
	lastInput types.DiaryInput
	lastPatch types.DiaryPatch
}

func (s *stubDiaries) List(_ context.Context, userID int) ([]types.Diary, error) {
	s.lastUser = userID
	return s.list, s.listErr
}

func (s *stubDiaries) GetOwned(_ context.Context, userID, diaryID int) (types.Diary, error) {
	s.lastUser = userID
	s.lastID = diaryID
	if s.getErr != nil {
		return types.Diary{}, s.getErr
	}
	return types.Diary{ID: diaryID, UserID: userID}, nil
}

func (s *stubDiaries) Create(_ context.Context, userID int, in types.DiaryInput) (types.Diary, error) {
	s.lastUser = userID
	s.lastInput = in
	if s.createErr != nil {
		return types.Diary{}, s.createErr
	}
	return types.Diary{
		ID:        11,
		UserID:    userID,
		Event:     *in.Event,
		MoodLevel: *in.MoodLevel,
		CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubDiaries) Update(_ context.Context, userID, diaryID int, patch types.DiaryPatch) (types.Diary, error) {
	s.lastUser = userID
	s.lastID = diaryID
	s.lastPatch = patch
	if s.updateErr != nil {
		return types.Diary{}, s.updateErr
	}
	return types.Diary{ID: diaryID, UserID: userID, MoodLevel: 1, CreatedAt: time.Unix(0, 0)}, nil
}

func newTestRouter(auth AuthService, diaries DiaryService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := stubTokens{"alice-token": 1, "bob-token": 2}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		AuthRouter(r, auth, logger)
		r.Route("/diaries", func(r chi.Router) {
			DiaryRouter(r, diaries, RequireAuth(tokens), logger)
		})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRegister(t *testing.T) {
	auth := &stubAuth{}
	h := newTestRouter(auth, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/register", "", `{"username":"alice","password":"pw1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully", decodeMessage(t, rec))
	assert.Equal(t, []string{"alice"}, auth.registered)
	assert.NotContains(t, rec.Body.String(), "access_token")
}

func TestRegister_Taken(t *testing.T) {
	h := newTestRouter(&stubAuth{registerErr: services.ErrConflict}, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/register", "", `{"username":"alice","password":"pw1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", decodeMessage(t, rec))
}

func TestRegister_BadBody(t *testing.T) {
	h := newTestRouter(&stubAuth{}, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/register", "", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	auth := &stubAuth{loginRes: services.LoginResult{Token: "jwt", Username: "alice"}}
	h := newTestRouter(auth, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/login", "", `{"username":"alice","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "jwt", body.AccessToken)
	assert.Equal(t, "alice", body.Username)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newTestRouter(&stubAuth{loginErr: services.ErrUnauthorized}, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/login", "", `{"username":"alice","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeMessage(t, rec))
	assert.NotContains(t, rec.Body.String(), "access_token")
}

func TestLogin_InternalError(t *testing.T) {
	h := newTestRouter(&stubAuth{loginErr: errors.New("db down")}, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/login", "", `{"username":"alice","password":"pw1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDiaries_RequireToken(t *testing.T) {
	diaries := &stubDiaries{}
	h := newTestRouter(&stubAuth{}, diaries)

	tests := []struct {
		name   string
		method string
		path   string
		header string
	}{
		{name: "list without header", method: http.MethodGet, path: "/api/diaries"},
		{name: "create without header", method: http.MethodPost, path: "/api/diaries"},
		{name: "update without header", method: http.MethodPut, path: "/api/diaries/1"},
		{name: "unknown token", method: http.MethodGet, path: "/api/diaries", header: "Bearer nope"},
		{name: "wrong scheme", method: http.MethodGet, path: "/api/diaries", header: "Basic alice-token"},
		{name: "empty bearer", method: http.MethodGet, path: "/api/diaries", header: "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	assert.Zero(t, diaries.lastUser)
}

func TestListDiaries(t *testing.T) {
	diaries := &stubDiaries{list: []types.Diary{
		{ID: 2, UserID: 1, MoodLevel: 4, CreatedAt: time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC)},
		{ID: 1, UserID: 1, MoodLevel: 3, CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)},
	}}
	h := newTestRouter(&stubAuth{}, diaries)

	rec := do(t, h, http.MethodGet, "/api/diaries", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, diaries.lastUser)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "2026-01-11T09:00:00Z", body[0]["created_at"])
	assert.Equal(t, float64(2), body[0]["id"])
	assert.NotContains(t, body[0], "user_id")
}

func TestListDiaries_EmptyIsArray(t *testing.T) {
	h := newTestRouter(&stubAuth{}, &stubDiaries{})

	rec := do(t, h, http.MethodGet, "/api/diaries", "bob-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateDiary(t *testing.T) {
	diaries := &stubDiaries{}
	h := newTestRouter(&stubAuth{}, diaries)

	body := `{"event":"e","emotion_desc":"d","emotion_meaning":"m","self_talk":"s","mood_level":3,"created_at":"2026-01-10T09:00:00.000Z"}`
	rec := do(t, h, http.MethodPost, "/api/diaries", "alice-token", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, 1, diaries.lastUser)
	require.NotNil(t, diaries.lastInput.CreatedAt)
	assert.Equal(t, "2026-01-10T09:00:00.000Z", *diaries.lastInput.CreatedAt)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(11), got["id"])
	assert.Equal(t, float64(3), got["mood_level"])
	assert.Equal(t, "2026-01-10T09:00:00Z", got["created_at"])
}

func TestCreateDiary_ValidationError(t *testing.T) {
	diaries := &stubDiaries{createErr: &services.ValidationError{Field: "event", Message: "event is required"}}
	h := newTestRouter(&stubAuth{}, diaries)

	rec := do(t, h, http.MethodPost, "/api/diaries", "alice-token", `{"mood_level":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "event is required", decodeMessage(t, rec))
}

func TestCreateDiary_WrongType(t *testing.T) {
	h := newTestRouter(&stubAuth{}, &stubDiaries{})

	rec := do(t, h, http.MethodPost, "/api/diaries", "alice-token", `{"mood_level":"high"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDiary(t *testing.T) {
	diaries := &stubDiaries{}
	h := newTestRouter(&stubAuth{}, diaries)

	rec := do(t, h, http.MethodPut, "/api/diaries/5", "bob-token", `{"mood_level":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, diaries.lastUser)
	assert.Equal(t, 5, diaries.lastID)
	require.NotNil(t, diaries.lastPatch.MoodLevel)
	assert.Equal(t, 1, *diaries.lastPatch.MoodLevel)
	assert.Nil(t, diaries.lastPatch.Event)
}

func TestUpdateDiary_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "not found", err: services.ErrNotFound, code: http.StatusNotFound, msg: "Diary not found"},
		{name: "not owner", err: services.ErrForbidden, code: http.StatusForbidden, msg: "Permission denied"},
		{name: "store failure", err: errors.New("db down"), code: http.StatusInternalServerError, msg: "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&stubAuth{}, &stubDiaries{updateErr: tt.err})

			rec := do(t, h, http.MethodPut, "/api/diaries/5", "alice-token", `{"event":"x"}`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decodeMessage(t, rec))
		})
	}
}

func TestUpdateDiary_LookupBeforeBody(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "unknown diary", err: services.ErrNotFound, code: http.StatusNotFound},
		{name: "foreign diary", err: services.ErrForbidden, code: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diaries := &stubDiaries{getErr: tt.err}
			h := newTestRouter(&stubAuth{}, diaries)

			rec := do(t, h, http.MethodPut, "/api/diaries/5", "alice-token", `{"mood_level":`)
			assert.Equal(t, tt.code, rec.Code)
			assert.Nil(t, diaries.lastPatch.MoodLevel)
		})
	}
}

func TestUpdateDiary_MalformedBodyOnOwnDiary(t *testing.T) {
	h := newTestRouter(&stubAuth{}, &stubDiaries{})

	rec := do(t, h, http.MethodPut, "/api/diaries/5", "alice-token", `{"mood_level":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDiary_NonNumericID(t *testing.T) {
	diaries := &stubDiaries{}
	h := newTestRouter(&stubAuth{}, diaries)

	rec := do(t, h, http.MethodPut, "/api/diaries/abc", "alice-token", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, diaries.lastID)
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(stubPinger{})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Healthz(stubPinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
