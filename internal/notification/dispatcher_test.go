package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"caseflow/internal/config"
	"caseflow/internal/lifecycle"
	"caseflow/internal/models"
)

func testConfig(url string) config.NotificationsConfig {
	return config.NotificationsConfig{
		Enabled:     true,
		WebhookURL:  url,
		Workers:     2,
		QueueSize:   16,
		MaxRetries:  3,
		RetryDelay:  10 * time.Millisecond,
		RatePerSec:  1000,
		RateBurst:   1000,
		HTTPTimeout: 2 * time.Second,
	}
}

func testNotification() lifecycle.Notification {
	return lifecycle.Notification{
		Actor:      uuid.New(),
		Recipients: []uuid.UUID{uuid.New()},
		Event:      lifecycle.EventCaseStatusChanged,
		EntityKind: models.KindCase,
		EntityID:   uuid.New(),
		State:      string(models.CaseOpen),
		OccurredAt: time.Now().UTC(),
	}
}

func TestDispatcherDelivers(t *testing.T) {
	var mu sync.Mutex
	var received []lifecycle.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n lifecycle.Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL), zap.NewNop())
	d.Start()
	defer d.Stop()

	want := testNotification()
	d.Dispatch(context.Background(), want)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond, "notification should be delivered")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want.Event, received[0].Event)
	assert.Equal(t, want.EntityID, received[0].EntityID)
	assert.Equal(t, want.State, received[0].State)
}

func TestDispatcherRetriesOnFailure(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL), zap.NewNop())
	d.Start()
	defer d.Stop()

	d.Dispatch(context.Background(), testNotification())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 3
	}, 2*time.Second, 10*time.Millisecond, "delivery should be retried until it succeeds")
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	d := NewDispatcher(cfg, zap.NewNop())
	d.Start()
	defer d.Stop()

	d.Dispatch(context.Background(), testNotification())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	}, 2*time.Second, 10*time.Millisecond)

	// No further attempts arrive once the retry budget is spent.
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestDispatcherDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled dispatcher must not call the webhook")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Enabled = false
	d := NewDispatcher(cfg, zap.NewNop())
	d.Start()
	defer d.Stop()

	d.Dispatch(context.Background(), testNotification())
	time.Sleep(50 * time.Millisecond)
}
