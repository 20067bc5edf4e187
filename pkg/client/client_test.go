package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
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
	"github.com/maplify-tech/whiteboard/internal/router/modules"
	"github.com/maplify-tech/whiteboard/pkg/autosave"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
	"github.com/maplify-tech/whiteboard/pkg/boardfile"
	"github.com/maplify-tech/whiteboard/pkg/client"
	"github.com/maplify-tech/whiteboard/pkg/helpers"
	"github.com/maplify-tech/whiteboard/pkg/thumbnail"
	"github.com/maplify-tech/whiteboard/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
	helpers.PasswordCost = bcrypt.MinCost
}

// newAPI serves the real handlers over in-memory storage.
func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{MaxBodyBytes: 1 << 20, MaxFileBytes: 64 << 10, RateLimitWindow: time.Minute}
	logger := helpers.DiscardLogger()
	users := memory.NewUserRepository()
	userSvc := application.NewUserService(users, memory.NewSessionStore(), helpers.NewJWTManager("client-test", time.Hour), nil, logger)
	boardSvc := application.NewBoardService(memory.NewBoardRepository(), memory.NewObjectStore(), nil, users, nil, logger)

	r := gin.New()
	api := r.Group("/api")
	modules.NewAuthModule(handlers.NewAuthHandler(userSvc, logger), userSvc, nil, cfg, logger).Register(api)
	modules.NewBoardModule(handlers.NewBoardHandler(boardSvc, logger), userSvc, nil, cfg, logger).Register(api)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func signedIn(t *testing.T, srv *httptest.Server, email string) *client.Client {
	t.Helper()
	c := client.New(srv.URL)
	_, err := c.Register(context.Background(), email, "correct horse", "")
	require.NoError(t, err)
	require.True(t, c.IsAuthenticated())
	return c
}

func element(id string, x int) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"id": id, "type": "rectangle", "x": x, "y": 0, "width": 40, "height": 20})
	return raw
}

func TestClient_BoardLifecycle(t *testing.T) {
	srv := newAPI(t)
	c := signedIn(t, srv, "ada@example.com")
	ctx := context.Background()

	created, err := c.CreateBoard(ctx, client.CreateBoardRequest{Name: "Plan", Data: boarddoc.DefaultData(), Tags: []string{"work"}})
	require.NoError(t, err)

	got, err := c.GetBoard(ctx, created.ID)
	require.NoError(t, err)
	doc := boarddoc.ToWorking(*got)
	assert.Equal(t, "Plan", doc.Name)
	assert.Empty(t, doc.Elements)
	assert.Equal(t, []string{"work"}, doc.Tags)

	name := "Plan v2"
	_, err = c.UpdateBoard(ctx, created.ID, client.UpdateBoardRequest{Name: &name})
	require.NoError(t, err)

	dup, err := c.DuplicateBoard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan v2 (Copy)", dup.Name)

	list, err := c.ListBoards(ctx, client.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	tagged, err := c.ListBoards(ctx, client.ListOptions{Tag: "work"})
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	require.NoError(t, c.DeleteBoard(ctx, created.ID))
	err = c.DeleteBoard(ctx, created.ID)
	assert.True(t, client.IsNotFound(err))

	file, err := c.UploadFile(ctx, dup.ID, "notes.txt", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	body, _, err := c.DownloadFile(ctx, dup.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestClient_ErrorsAndAuth(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	anon := client.New(srv.URL)

	_, err := anon.ListBoards(ctx, client.ListOptions{})
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
	assert.Equal(t, "invalid or expired session", err.Error())

	c := signedIn(t, srv, "ada@example.com")
	_, err = c.CreateBoard(ctx, client.CreateBoardRequest{Name: "", Data: boarddoc.DefaultData()})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Details, "name")

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.IsAuthenticated())
}

func TestClient_ExportImport(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	c := signedIn(t, srv, "ada@example.com")

	data := boarddoc.DefaultData()
	data.Elements = []json.RawMessage{element("a", 1)}
	b, err := c.CreateBoard(ctx, client.CreateBoardRequest{Name: "Exported", Data: data})
	require.NoError(t, err)

	single, err := c.ExportBoard(ctx, b.ID)
	require.NoError(t, err)
	parsed, err := boardfile.Parse(single)
	require.NoError(t, err)
	require.NotNil(t, parsed.Single)
	assert.Equal(t, "Exported", parsed.Single.Name)

	all, err := c.ExportAll(ctx)
	require.NoError(t, err)

	other := signedIn(t, srv, "bob@example.com")
	imported, err := other.ImportFile(ctx, all)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.NotEqual(t, b.ID, imported[0].ID)

	_, err = other.ImportFile(ctx, []byte(`{"version":"1.0"}`))
	assert.Equal(t, http.StatusBadRequest, client.StatusOf(err))
}

func TestAuthStore(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	settings := &client.MemorySettings{}
	store := client.NewAuthStore(client.New(srv.URL), settings, helpers.DiscardLogger())

	var seen []client.AuthState
	unsub := store.Subscribe(func(s client.AuthState) { seen = append(seen, s) })

	require.NoError(t, store.Register(ctx, "ada@example.com", "correct horse", "Ada"))
	st := store.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, "Ada", st.User.Name)
	assert.True(t, seen[0].Loading)
	unsub()

	saved, err := settings.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Token)

	// A fresh store picks the token back up from settings.
	restored := client.NewAuthStore(client.New(srv.URL), settings, helpers.DiscardLogger())
	restored.LoadUser(ctx)
	assert.True(t, restored.State().Authenticated)
	assert.Equal(t, "ada@example.com", restored.State().User.Email)

	err = store.Login(ctx, "ada@example.com", "wrong horse")
	require.Error(t, err)
	assert.NotEmpty(t, store.State().Error)
	store.ClearError()
	assert.Empty(t, store.State().Error)

	store.Logout(ctx)
	assert.False(t, store.State().Authenticated)
	assert.Nil(t, store.State().User)
	saved, _ = settings.Load()
	assert.Empty(t, saved.Token)
}

func TestAuthStore_LogoutClearsEvenWhenServerFails(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	api := client.New(srv.URL, client.WithToken("stale-token"))
	store := client.NewAuthStore(api, nil, helpers.DiscardLogger())
	require.True(t, store.State().Authenticated)

	store.Logout(ctx)

	assert.False(t, store.State().Authenticated)
	assert.False(t, api.IsAuthenticated())
}

func TestAuthStore_LoadUserDropsInvalidToken(t *testing.T) {
	srv := newAPI(t)
	api := client.New(srv.URL, client.WithToken("bogus"))
	store := client.NewAuthStore(api, nil, helpers.DiscardLogger())

	store.LoadUser(context.Background())

	assert.False(t, store.State().Authenticated)
	assert.False(t, api.IsAuthenticated())
}

func TestBoardStore_LoadCreatesUntitledWhenEmpty(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	settings := &client.MemorySettings{}
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), settings, nil, helpers.DiscardLogger())

	require.NoError(t, store.LoadBoards(ctx))

	st := store.State()
	require.Len(t, st.Boards, 1)
	require.NotNil(t, st.CurrentBoard)
	assert.Equal(t, client.UntitledBoard, st.CurrentBoard.Name)
	assert.False(t, st.Loading)
	saved, _ := settings.Load()
	assert.Equal(t, st.CurrentBoardID, saved.LastBoardID)
}

func TestBoardStore_LoadReopensLastBoard(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	api := signedIn(t, srv, "ada@example.com")
	first, err := api.CreateBoard(ctx, client.CreateBoardRequest{Name: "First", Data: boarddoc.DefaultData()})
	require.NoError(t, err)
	_, err = api.CreateBoard(ctx, client.CreateBoardRequest{Name: "Second", Data: boarddoc.DefaultData()})
	require.NoError(t, err)

	settings := &client.MemorySettings{}
	require.NoError(t, settings.Save(client.Settings{LastBoardID: first.ID}))
	store := client.NewBoardStore(api, settings, nil, helpers.DiscardLogger())
	require.NoError(t, store.LoadBoards(ctx))
	assert.Equal(t, first.ID, store.State().CurrentBoardID)

	require.NoError(t, settings.Save(client.Settings{LastBoardID: "gone"}))
	require.NoError(t, store.LoadBoards(ctx))
	assert.Equal(t, store.State().Boards[0].ID, store.State().CurrentBoardID)
}

func TestBoardStore_UpdateCurrentBoardSetsThumbnail(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), nil,
		thumbnail.NewGenerator(thumbnail.SolidRenderer{}, helpers.DiscardLogger()), helpers.DiscardLogger())
	require.NoError(t, store.CreateBoard(ctx, "Canvas"))

	err := store.UpdateCurrentBoard(ctx, []json.RawMessage{element("a", 5)}, map[string]json.RawMessage{"viewBackgroundColor": json.RawMessage(`"#fafafa"`)}, nil)
	require.NoError(t, err)

	st := store.State()
	require.Len(t, st.CurrentBoard.Elements, 1)
	require.NotNil(t, st.CurrentBoard.Thumbnail)
	assert.Contains(t, *st.CurrentBoard.Thumbnail, "data:image/png;base64,")
	assert.False(t, st.LastSavedAt.IsZero())
	require.Len(t, st.Boards, 1)
	assert.NotNil(t, st.Boards[0].Thumbnail)
}

func TestBoardStore_SaveFailureIsNotVisible(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	api := signedIn(t, srv, "ada@example.com")
	store := client.NewBoardStore(api, nil, nil, helpers.DiscardLogger())
	require.NoError(t, store.CreateBoard(ctx, "Canvas"))

	api.SetToken("revoked")
	err := store.UpdateCurrentBoard(ctx, []json.RawMessage{element("a", 1)}, nil, nil)

	require.Error(t, err)
	assert.Empty(t, store.State().Error)
}

func TestBoardStore_RenameDuplicateRemove(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), nil, nil, helpers.DiscardLogger())
	require.NoError(t, store.CreateBoard(ctx, "Only"))
	id := store.State().CurrentBoardID

	require.NoError(t, store.RenameBoard(ctx, id, "Renamed"))
	assert.Equal(t, "Renamed", store.State().CurrentBoard.Name)

	require.NoError(t, store.DuplicateBoard(ctx, id))
	assert.Len(t, store.State().Boards, 2)

	require.NoError(t, store.RemoveBoard(ctx, id))
	st := store.State()
	require.Len(t, st.Boards, 1)
	assert.Equal(t, "Renamed (Copy)", st.CurrentBoard.Name)

	require.NoError(t, store.RemoveBoard(ctx, st.CurrentBoardID))
	st = store.State()
	require.Len(t, st.Boards, 1)
	assert.Equal(t, client.UntitledBoard, st.CurrentBoard.Name)

	err := store.RenameBoard(ctx, "00000000-0000-4000-8000-000000000000", "x")
	require.Error(t, err)
	assert.Equal(t, "board not found", store.State().Error)
}

func TestBoardStore_ImportFile(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), nil, nil, helpers.DiscardLogger())

	content, err := boardfile.EncodeBoards([]boarddoc.Document{
		{ID: "x", Name: "One", Elements: []json.RawMessage{element("a", 1)}, AppState: map[string]json.RawMessage{}},
		{ID: "y", Name: "Two", Elements: []json.RawMessage{}, AppState: map[string]json.RawMessage{}},
	}, time.Now())
	require.NoError(t, err)

	n, err := store.ImportFile(ctx, content)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st := store.State()
	assert.Len(t, st.Boards, 2)
	require.NotNil(t, st.CurrentBoard)
	assert.NotEqual(t, "x", st.CurrentBoardID)

	_, err = store.ImportFile(ctx, []byte(`garbage`))
	require.Error(t, err)
	assert.Equal(t, "invalid file", store.State().Error)
}

func TestThemeStore(t *testing.T) {
	settings := &client.MemorySettings{}
	system := client.ThemeDark
	var mu sync.Mutex
	store := client.NewThemeStore(settings, func() client.Theme {
		mu.Lock()
		defer mu.Unlock()
		return system
	}, helpers.DiscardLogger())

	assert.Equal(t, client.ThemeState{Theme: client.ThemeAuto, Effective: client.ThemeDark}, store.State())

	mu.Lock()
	system = client.ThemeLight
	mu.Unlock()
	store.SystemChanged()
	assert.Equal(t, client.ThemeLight, store.State().Effective)

	var got []client.ThemeState
	store.Subscribe(func(s client.ThemeState) { got = append(got, s) })
	require.NoError(t, store.SetTheme(client.ThemeDark))
	assert.Equal(t, []client.ThemeState{{Theme: client.ThemeDark, Effective: client.ThemeDark}}, got)

	saved, _ := settings.Load()
	assert.Equal(t, client.ThemeDark, saved.Theme)
	assert.True(t, saved.GridEnabled)

	assert.Error(t, store.SetTheme("sepia"))

	mu.Lock()
	system = client.ThemeDark
	mu.Unlock()
	store.SystemChanged()
	assert.Len(t, got, 1)
}

func TestFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	fs := client.NewFileSettings(path)

	s, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, client.DefaultSettings(), s)

	s.Theme = client.ThemeLight
	s.Token = "tok"
	require.NoError(t, fs.Save(s))

	again, err := client.NewFileSettings(path).Load()
	require.NoError(t, err)
	assert.Equal(t, client.ThemeLight, again.Theme)
	assert.Equal(t, "tok", again.Token)
	assert.Equal(t, 5000, again.AutoSaveInterval)
}

func TestSession_DebouncesIntoCurrentBoard(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), nil, nil, helpers.DiscardLogger())
	require.NoError(t, store.CreateBoard(ctx, "Live"))

	saved := make(chan struct{}, 4)
	unsub := store.Subscribe(func(s client.BoardState) {
		if !s.LastSavedAt.IsZero() {
			select {
			case saved <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	sess := client.NewSession(ctx, store, nil, helpers.DiscardLogger(), autosave.WithInterval(20*time.Millisecond))
	defer sess.Close()
	sess.OnChange([]json.RawMessage{element("a", 1)}, map[string]json.RawMessage{}, nil)
	sess.OnChange([]json.RawMessage{element("a", 1), element("b", 2)}, map[string]json.RawMessage{}, nil)

	select {
	case <-saved:
	case <-time.After(2 * time.Second):
		t.Fatal("autosave did not fire")
	}
	assert.Len(t, store.State().CurrentBoard.Elements, 2)
	assert.False(t, sess.Pending())
}

func TestSession_CloseDropsPendingEdits(t *testing.T) {
	srv := newAPI(t)
	ctx := context.Background()
	store := client.NewBoardStore(signedIn(t, srv, "ada@example.com"), nil, nil, helpers.DiscardLogger())
	require.NoError(t, store.CreateBoard(ctx, "Closing"))

	sess := client.NewSession(ctx, store, nil, helpers.DiscardLogger(), autosave.WithInterval(time.Hour))
	sess.OnChange([]json.RawMessage{element("a", 1)}, nil, nil)
	require.True(t, sess.Pending())
	sess.Close()
	assert.False(t, sess.Pending())
	require.NoError(t, sess.Flush())

	assert.Empty(t, store.State().CurrentBoard.Elements)
}
