package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/internal/auth"
	"portfolio/internal/feed"
	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/objectstore"
	"portfolio/internal/storage"
)

type memPhotos struct {
	mu   sync.Mutex
	docs map[string]models.PhotoDocument
}

func (m *memPhotos) ListPhotos(context.Context) ([]models.PhotoDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PhotoDocument, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPhotos) AddPhoto(_ context.Context, doc *models.PhotoDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *memPhotos) UpdatePhoto(_ context.Context, id string, upd models.PhotoUpdate) (*models.PhotoDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("mem: %w", storage.ErrNotFound)
	}
	upd.ApplyDocument(&doc)
	m.docs[id] = doc
	return &doc, nil
}

func (m *memPhotos) DeletePhoto(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("mem: %w", storage.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) UpsertUser(_ context.Context, email, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: "u1", Email: email, PasswordHash: hash}
	m.users[email] = u
	return u, nil
}

type testServer struct {
	srv    *Server
	photos *memPhotos
	hub    *feed.Hub
	files  string
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.Discard()
	photos := &memPhotos{docs: map[string]models.PhotoDocument{}}
	dir := t.TempDir()
	objects, err := objectstore.NewLocal(dir, "http://photos.test")
	require.NoError(t, err)

	svc := auth.NewService(&memUsers{users: map[string]*models.User{}}, "test-secret", time.Hour)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "bb@example.com", "hunter2"))

	hub := feed.NewHub(photos, log)
	srv := NewServer(&models.Config{ServerAddr: "127.0.0.1:0"}, Deps{
		Photos:   photos,
		Objects:  objects,
		Feed:     hub,
		Notifier: feed.NewLocal(hub),
		Auth:     svc,
		Log:      log,
		FilesDir: objects.Root(),
	})

	ts := &testServer{srv: srv, photos: photos, hub: hub, files: dir}
	ts.token = ts.signIn(t, "bb@example.com", "hunter2", http.StatusOK)
	return ts
}

func (ts *testServer) do(t *testing.T, method, target string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func (ts *testServer) signIn(t *testing.T, email, password string, want int) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	w := ts.do(t, http.MethodPost, "/api/auth/signin", strings.NewReader(body), "")
	require.Equal(t, want, w.Code, w.Body.String())

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
		Error string      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	if want != http.StatusOK {
		assert.NotEmpty(t, resp.Error)
		return ""
	}
	assert.Equal(t, "bb@example.com", resp.User.Email)
	return resp.Token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignIn_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.signIn(t, "bb@example.com", "nope", http.StatusUnauthorized)
	ts.signIn(t, "nobody@example.com", "hunter2", http.StatusUnauthorized)
}

func TestPhotos_WritesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/photos", strings.NewReader(`{"title":"x"}`), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/photos/x", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, http.MethodPut, "/api/objects/photos/a.jpg", strings.NewReader("x"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPhotos_Lifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/photos",
		strings.NewReader(`{"title":"Grebes","category":"courtship","frameSize":"medium","fileName":"photos/a.jpg"}`), ts.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.PhotoDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	w = ts.do(t, http.MethodPatch, "/api/photos/"+created.ID, strings.NewReader(`{"title":"Dancing Grebes"}`), ts.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/photos", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.PhotoDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Dancing Grebes", list[0].Title)
	assert.Equal(t, models.CategoryCourtship, list[0].Category)

	w = ts.do(t, http.MethodDelete, "/api/photos/"+created.ID, nil, ts.token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/photos/"+created.ID, nil, ts.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPhotos_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/photos", strings.NewReader(`{"title":`), ts.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, "/api/photos", strings.NewReader(`{"category":"sunsets"}`), ts.token)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = ts.do(t, http.MethodPatch, "/api/photos/missing", strings.NewReader(`{"title":"x"}`), ts.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPatch, "/api/photos/missing", strings.NewReader(`{}`), ts.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestObjects_PutURLServeDelete(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/objects/photos/1-abcd1234-heron.jpg", strings.NewReader("jpeg-bytes"))
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", "image/jpeg")
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/objects/url?path=photos/1-abcd1234-heron.jpg", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "http://photos.test/files/photos/1-abcd1234-heron.jpg", resp.URL)

	w = ts.do(t, http.MethodGet, "/files/photos/1-abcd1234-heron.jpg", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())

	w = ts.do(t, http.MethodDelete, "/api/objects/photos/1-abcd1234-heron.jpg", nil, ts.token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/objects/url?path=photos/1-abcd1234-heron.jpg", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/objects/url?path=../etc/passwd", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceholder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/placeholder/30/20/sample-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	w = ts.do(t, http.MethodGet, "/api/placeholder/0/20/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodGet, "/api/placeholder/99999/20/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLive_PushesSnapshots(t *testing.T) {
	ts := newTestServer(t)
	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/photos/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first []models.PhotoDocument
	require.NoError(t, conn.ReadJSON(&first))
	assert.Empty(t, first)

	w := ts.do(t, http.MethodPost, "/api/photos", strings.NewReader(`{"title":"Heron"}`), ts.token)
	require.Equal(t, http.StatusCreated, w.Code)

	var next []models.PhotoDocument
	require.NoError(t, conn.ReadJSON(&next))
	require.Len(t, next, 1)
	assert.Equal(t, "Heron", next[0].Title)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return ts.hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}
