package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/maplify-tech/whiteboard/config"
	"github.com/maplify-tech/whiteboard/internal/application"
	"github.com/maplify-tech/whiteboard/internal/infrastructure/memory"
	handlers "github.com/maplify-tech/whiteboard/internal/interface/http"
	"github.com/maplify-tech/whiteboard/internal/interface/middleware"
	"github.com/maplify-tech/whiteboard/internal/router/modules"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
	"github.com/maplify-tech/whiteboard/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

type testServer struct {
	engine *gin.Engine
	files  *memory.ObjectStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		AppName:          "whiteboard-test",
		CompanyName:      "Maplify Tech",
		MaxBodyBytes:     1 << 20,
		MaxFileBytes:     64 << 10,
		RateLimitWindow:  time.Minute,
		RateLimitAuthMax: 10,
		RateLimitAPIMax:  100,
	}
	logger := helpers.DiscardLogger()
	users := memory.NewUserRepository()
	files := memory.NewObjectStore()

	userSvc := application.NewUserService(users, memory.NewSessionStore(), helpers.NewJWTManager("test-secret", time.Hour), nil, logger)
	boardSvc := application.NewBoardService(memory.NewBoardRepository(), files, nil, users, nil, logger)
	boardSvc.MaxFileBytes = cfg.MaxFileBytes

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	modules.NewAuthModule(handlers.NewAuthHandler(userSvc, logger), userSvc, nil, cfg, logger).Register(api)
	modules.NewBoardModule(handlers.NewBoardHandler(boardSvc, logger), userSvc, nil, cfg, logger).Register(api)
	modules.NewHealthModule(handlers.NewHealthHandler(okChecker{}, logger)).Register(&r.RouterGroup)
	return &testServer{engine: r, files: files}
}

type okChecker struct{ err error }

func (c okChecker) Check(context.Context) error { return c.err }

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "correct horse", "name": "Tester"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

type boardBody struct {
	Board struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Data      json.RawMessage `json:"data"`
		Thumbnail *string         `json:"thumbnail"`
		Tags      []string        `json:"tags"`
		UpdatedAt time.Time       `json:"updatedAt"`
	} `json:"board"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func newBoardPayload(name string) gin.H {
	return gin.H{
		"name": name,
		"data": gin.H{
			"elements": []gin.H{{"id": "e1", "type": "rectangle", "x": 10, "y": 20, "width": 30, "height": 40}},
			"appState": gin.H{"viewBackgroundColor": "#ffffff"},
			"files":    gin.H{},
		},
	}
}

func (s *testServer) createBoard(t *testing.T, token, name string) boardBody {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/boards", token, newBoardPayload(name))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[boardBody](t, w)
}

func TestBoards_RequireAuthWithIdenticalBody(t *testing.T) {
	s := newTestServer(t)

	var bodies []string
	for _, token := range []string{"", "garbage", "a.b.c"} {
		w := s.do(t, http.MethodGet, "/api/boards", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		bodies = append(bodies, body["error"].(string))
	}
	assert.Equal(t, []string{"invalid or expired session", "invalid or expired session", "invalid or expired session"}, bodies)
}

func TestBoards_CreateGetList(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")

	created := s.createBoard(t, token, "Roadmap")
	assert.Equal(t, "Roadmap", created.Board.Name)
	assert.Equal(t, []string{}, created.Board.Tags)

	w := s.do(t, http.MethodGet, "/api/boards/"+created.Board.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[boardBody](t, w)
	assert.JSONEq(t, string(created.Board.Data), string(got.Board.Data))

	w = s.do(t, http.MethodGet, "/api/boards", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Boards []map[string]any `json:"boards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Boards, 1)
	assert.NotContains(t, list.Boards[0], "data")
	assert.Equal(t, "Roadmap", list.Boards[0]["name"])
}

func TestBoards_OtherUsersBoardIsNotFound(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "ada@example.com")
	bob := s.register(t, "bob@example.com")
	b := s.createBoard(t, ada, "Private")

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/boards/" + b.Board.ID, nil},
		{http.MethodPut, "/api/boards/" + b.Board.ID, gin.H{"name": "Mine now"}},
		{http.MethodDelete, "/api/boards/" + b.Board.ID, nil},
		{http.MethodPost, "/api/boards/" + b.Board.ID + "/duplicate", nil},
		{http.MethodGet, "/api/boards/not-a-uuid", nil},
	} {
		w := s.do(t, tc.method, tc.path, bob, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}

	w := s.do(t, http.MethodGet, "/api/boards/"+b.Board.ID, ada, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBoards_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")

	cases := map[string]struct {
		body  any
		field string
	}{
		"missing name": {gin.H{"data": gin.H{"elements": []any{}, "appState": gin.H{}}}, "name"},
		"long name":    {newBoardPayload(strings.Repeat("n", 256)), "name"},
		"missing data": {gin.H{"name": "x"}, "data"},
		"bad json":     {`{"name":`, "payload"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/boards", token, tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var body struct {
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body.Details, tc.field)
		})
	}
}

func TestBoards_PartialUpdate(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")
	b := s.createBoard(t, token, "Draft")

	w := s.do(t, http.MethodPut, "/api/boards/"+b.Board.ID, token, gin.H{"name": "Final", "thumbnail": "data:image/png;base64,AA=="})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	up := decode[boardBody](t, w)
	assert.Equal(t, "Final", up.Board.Name)
	require.NotNil(t, up.Board.Thumbnail)
	assert.JSONEq(t, string(b.Board.Data), string(up.Board.Data))
	assert.False(t, up.Board.UpdatedAt.Before(b.Board.UpdatedAt))

	w = s.do(t, http.MethodPut, "/api/boards/"+b.Board.ID, token, gin.H{"thumbnail": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[boardBody](t, w).Board.Thumbnail)

	w = s.do(t, http.MethodPut, "/api/boards/"+b.Board.ID, token, gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoards_DuplicateAndDeleteTwice(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")
	b := s.createBoard(t, token, "Sketch")

	w := s.do(t, http.MethodPost, "/api/boards/"+b.Board.ID+"/duplicate", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	dup := decode[boardBody](t, w)
	assert.Equal(t, "Sketch (Copy)", dup.Board.Name)
	assert.NotEqual(t, b.Board.ID, dup.Board.ID)
	assert.JSONEq(t, string(b.Board.Data), string(dup.Board.Data))

	w = s.do(t, http.MethodDelete, "/api/boards/"+b.Board.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Board deleted successfully"}`, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/boards/"+b.Board.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoards_ExportImport(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")
	b := s.createBoard(t, token, "Plan")

	w := s.do(t, http.MethodGet, "/api/boards/"+b.Board.ID+"/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	exported := w.Body.Bytes()

	w = s.do(t, http.MethodPost, "/api/import/boards", token, exported)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var imported struct {
		Boards []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"boards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	require.Len(t, imported.Boards, 1)
	assert.Equal(t, "Plan", imported.Boards[0].Name)
	assert.NotEqual(t, b.Board.ID, imported.Boards[0].ID)

	w = s.do(t, http.MethodGet, "/api/export/boards", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var backup struct {
		Boards   []json.RawMessage `json:"boards"`
		Metadata struct {
			TotalBoards int `json:"totalBoards"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &backup))
	assert.Len(t, backup.Boards, 2)
	assert.Equal(t, 2, backup.Metadata.TotalBoards)
}

func TestBoards_ImportInvalidFile(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")

	for _, body := range []string{`not json`, `{}`, `{"version":"1.0","boards":[]}`, `{"version":"9.9","board":{"elements":[],"appState":{}},"metadata":{}}`} {
		w := s.do(t, http.MethodPost, "/api/import/boards", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "invalid file")
	}
}

func TestBoards_FileUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")
	b := s.createBoard(t, token, "Attachments")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/boards/"+b.Board.ID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		File application.FileRef `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, strings.HasSuffix(out.File.ID, ".png"))
	assert.Contains(t, s.files.Keys(), out.File.Key)

	w = s.do(t, http.MethodGet, "/api/boards/"+b.Board.ID+"/files/"+out.File.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG fake", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/boards/"+b.Board.ID+"/files/missing.png", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/boards/"+b.Board.ID+"/files", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_Flow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ada@example.com")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "ADA@example.com", "password": "another one"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "bad", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "ada@example.com", me.User["email"])
	assert.NotContains(t, me.User, "passwordHash")

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.NotEmpty(t, health["timestamp"])

	w = s.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","database":"connected"}`, w.Body.String())

	down := gin.New()
	h := handlers.NewHealthHandler(okChecker{err: errors.New("connection refused")}, helpers.DiscardLogger())
	down.GET("/ready", h.Ready)
	rec := httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready","database":"disconnected"}`, rec.Body.String())
}
