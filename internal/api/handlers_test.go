package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bolboard/internal/auth"
	"bolboard/internal/broker"
	"bolboard/internal/dispatch"
	"bolboard/internal/model"
	"bolboard/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryDirectory é um diretório em memória suficiente para os handlers.
type memoryDirectory struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{users: make(map[string]model.User)}
}

func (m *memoryDirectory) FindByUserID(userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, found := m.users[userID]
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (m *memoryDirectory) UpsertOnline(userID, displayName string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := model.User{UserID: userID, DisplayName: displayName, Online: true}
	m.users[userID] = user
	return &user, nil
}

func (m *memoryDirectory) SearchOnlineByDisplayName(phrase string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []model.User
	for _, user := range m.users {
		if user.Online && strings.Contains(user.DisplayName, phrase) {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memoryDirectory) SetOffline(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, found := m.users[userID]
	if found {
		user.Online = false
		m.users[userID] = user
	}
	return nil
}

type approveAll struct{}

func (approveAll) Verify(ctx context.Context, principal model.Principal) (bool, error) {
	return true, nil
}

type rejectAll struct{}

func (rejectAll) Verify(ctx context.Context, principal model.Principal) (bool, error) {
	return false, nil
}

func newTestAPI(t *testing.T, verifier auth.Verifier) (*dispatch.Dispatcher, *broker.MemoryBroker) {
	t.Helper()

	sessions := session.NewCache(time.Minute, nil)
	t.Cleanup(sessions.Stop)

	verifiers := auth.NewRegistry()
	verifiers.Register(auth.FacebookProviderID, verifier)

	b := broker.NewMemoryBroker()
	dispatcher := dispatch.NewDispatcher(sessions, newMemoryDirectory(), verifiers, b)
	t.Cleanup(dispatcher.Stop)

	return dispatcher, b
}

func principalBody(principalID, displayName string) string {
	return `{"providerId": "facebook", "principalId": "` + principalID +
		`", "displayName": "` + displayName + `", "token": "tok"}`
}

// createSession passa pelo handler HTTP real e devolve a sessão e os cookies.
func createSession(t *testing.T, dispatcher *dispatch.Dispatcher, principalID, displayName string) (model.ActiveSession, []*http.Cookie) {
	t.Helper()

	handler := CreateSessionHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(principalBody(principalID, displayName)))
	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created model.ActiveSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	return created, rec.Result().Cookies()
}

func TestCreateSessionHandler(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	created, cookies := createSession(t, dispatcher, "123", "Maria")
	assert.Equal(t, "facebook:123", created.UserID)
	assert.NotEmpty(t, created.SessionID)

	// Os dois cookies de sessão vêm na resposta, com o valor escapado.
	values := make(map[string]string)
	for _, cookie := range cookies {
		unescaped, err := url.QueryUnescape(cookie.Value)
		require.NoError(t, err)
		values[cookie.Name] = unescaped
	}
	assert.Equal(t, created.UserID, values[model.UserIDKey])
	assert.Equal(t, created.SessionID, values[model.SessionIDKey])
}

func TestCreateSessionHandlerRejectsInvalidToken(t *testing.T) {
	dispatcher, _ := newTestAPI(t, rejectAll{})

	handler := CreateSessionHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(principalBody("123", "Maria")))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCreateSessionHandlerRejectsBadPayload(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	handler := CreateSessionHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionHandlerRejectsGet(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	handler := CreateSessionHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchHandler(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	_, cookies := createSession(t, dispatcher, "123", "Maria")
	_, _ = createSession(t, dispatcher, "456", "Mariana")

	handler := SearchHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/search?q=Mari", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Len(t, result.SearchResult, 1)
	assert.Equal(t, "facebook:456", result.SearchResult[0].UserID)
}

func TestSearchHandlerWithoutCookies(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	handler := SearchHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/search?q=Mari", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchHandlerWithStaleSession(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	handler := SearchHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/search?q=Mari", nil)
	req.AddCookie(&http.Cookie{Name: model.UserIDKey, Value: "facebook:ghost"})
	req.AddCookie(&http.Cookie{Name: model.SessionIDKey, Value: "expired"})
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameRequestHandlerPublishesInvite(t *testing.T) {
	dispatcher, b := newTestAPI(t, approveAll{})

	_, cookies := createSession(t, dispatcher, "123", "Maria")

	sub, err := b.Subscribe("facebook:456")
	require.NoError(t, err)
	defer sub.Close()

	handler := GameRequestHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodPost, "/game-request", strings.NewReader(`{"target": "facebook:456"}`))
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	select {
	case delivery := <-sub.Deliveries():
		assert.Equal(t, "game_request=facebook:123", string(delivery.Body))
	case <-time.After(time.Second):
		t.Fatal("convite não foi publicado")
	}
}

func TestGameRequestHandlerRejectsEmptyTarget(t *testing.T) {
	dispatcher, _ := newTestAPI(t, approveAll{})

	_, cookies := createSession(t, dispatcher, "123", "Maria")

	handler := GameRequestHandler(dispatcher, NewCookieSessionStore())
	req := httptest.NewRequest(http.MethodPost, "/game-request", strings.NewReader(`{}`))
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCookieStoreRoundTrip(t *testing.T) {
	store := NewCookieSessionStore()

	rec := httptest.NewRecorder()
	store.Put(rec, model.UserIDKey, "facebook:123")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	assert.Equal(t, "facebook:123", store.Get(req, model.UserIDKey))

	// Chave ausente devolve vazio, nunca erro.
	assert.Equal(t, "", store.Get(req, model.SessionIDKey))
}
