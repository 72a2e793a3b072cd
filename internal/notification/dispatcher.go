package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"caseflow/internal/config"
	"caseflow/internal/lifecycle"
)

// Dispatcher delivers notifications to the configured webhook endpoint with
// worker goroutines, rate limiting and bounded retries. Delivery is
// at-least-once and strictly post-commit: the engines enqueue only after the
// transaction committed, and a failed delivery never affects entity state.
type Dispatcher struct {
	cfg      config.NotificationsConfig
	client   *http.Client
	limiter  *rate.Limiter
	queue    chan delivery
	logger   *zap.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

type delivery struct {
	notification lifecycle.Notification
	attempt      int
}

// NewDispatcher creates a dispatcher. Call Start before dispatching.
func NewDispatcher(cfg config.NotificationsConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		queue:    make(chan delivery, cfg.QueueSize),
		logger:   logger.Named("notification"),
		shutdown: make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	d.logger.Info("Starting notification dispatcher", zap.Int("workers", d.cfg.Workers))
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop drains the workers. Queued notifications that have not been picked up
// yet are dropped; at-least-once applies only while the service runs.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.shutdown) })
	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

// Dispatch enqueues one notification. A full queue drops the notification
// with a log line rather than blocking the caller's request path.
func (d *Dispatcher) Dispatch(ctx context.Context, n lifecycle.Notification) {
	if !d.cfg.Enabled {
		return
	}
	select {
	case d.queue <- delivery{notification: n}:
	default:
		d.logger.Warn("notification queue full, dropping",
			zap.String("event", string(n.Event)),
			zap.String("entity_id", n.EntityID.String()))
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.shutdown:
			return
		case item := <-d.queue:
			d.deliver(item)
		}
	}
}

func (d *Dispatcher) deliver(item delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.HTTPTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.logger.Warn("rate limiter wait aborted", zap.Error(err))
		return
	}

	err := d.post(ctx, item.notification)
	if err == nil {
		return
	}

	d.logger.Warn("notification delivery failed",
		zap.String("event", string(item.notification.Event)),
		zap.Int("attempt", item.attempt+1),
		zap.Error(err))

	if item.attempt+1 >= d.cfg.MaxRetries {
		d.logger.Error("notification dropped after retries",
			zap.String("event", string(item.notification.Event)),
			zap.String("entity_id", item.notification.EntityID.String()))
		return
	}

	item.attempt++
	go func() {
		select {
		case <-d.shutdown:
		case <-time.After(d.cfg.RetryDelay):
			select {
			case d.queue <- item:
			default:
				d.logger.Warn("notification queue full on retry, dropping")
			}
		}
	}()
}

func (d *Dispatcher) post(ctx context.Context, n lifecycle.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
