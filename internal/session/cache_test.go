package session

import (
	"sync"
	"testing"
	"time"

	"bolboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	defer cache.Stop()

	stored := cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "sess-1"})
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "sess-1", stored.SessionID)

	loaded, err := cache.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, stored, loaded)
}

func TestGetUnknownUser(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	defer cache.Stop()

	_, err := cache.Get("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPutOverwritesSession(t *testing.T) {
	cache := NewCache(time.Minute, nil)
	defer cache.Stop()

	cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "old"})
	cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "new"})

	loaded, err := cache.Get("user-1")
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.SessionID)
}

func TestExpiredSessionOnGet(t *testing.T) {
	cache := NewCache(10*time.Millisecond, nil)
	defer cache.Stop()

	cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "sess-1"})
	time.Sleep(30 * time.Millisecond)

	_, err := cache.Get("user-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEvictionCallbackRuns(t *testing.T) {
	var mu sync.Mutex
	evicted := make(map[string]bool)

	cache := NewCache(10*time.Millisecond, func(userID string) {
		mu.Lock()
		evicted[userID] = true
		mu.Unlock()
	})
	defer cache.Stop()

	cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "sess-1"})

	// O sweeper roda a cada TTL; espera algumas voltas antes de checar.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return evicted["user-1"]
	}, time.Second, 10*time.Millisecond)
}

func TestGetSlidesExpiration(t *testing.T) {
	cache := NewCache(60*time.Millisecond, nil)
	defer cache.Stop()

	cache.Put(model.ActiveSession{UserID: "user-1", SessionID: "sess-1"})

	// Consultas seguidas dentro da janela mantêm a sessão viva além do TTL
	// original.
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		_, err := cache.Get("user-1")
		require.NoError(t, err)
	}
}
