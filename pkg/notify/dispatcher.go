// Package notify delivers carpool notifications to guardians.
//
// The Dispatcher accepts cancellation notices from the service layer, renders
// one email per guardian and sends them from a background goroutine through a
// rate-limited Sender. Delivery is best effort: a failed send is logged and
// never affects the cancellation that produced it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jakechorley/carpool/pkg/db"
)

const (
	DefaultQueueSize   = 256
	DefaultSendTimeout = 30 * time.Second
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrStopped   = errors.New("notification dispatcher stopped")
)

// Sender delivers a single email
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Dispatcher queues notification emails and sends them in the background
type Dispatcher struct {
	sender      Sender
	log         *zap.Logger
	limiter     *rate.Limiter
	queue       chan Email
	sendTimeout time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup

	// mu orders enqueues before Stop so the final drain sees every accepted email
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher sending at most ratePerMinute emails per
// minute. A non-positive rate means unlimited.
func NewDispatcher(sender Sender, logger *zap.Logger, ratePerMinute, queueSize int) *Dispatcher {
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMinute))
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender:      sender,
		log:         logger,
		limiter:     rate.NewLimiter(limit, 1),
		queue:       make(chan Email, queueSize),
		sendTimeout: DefaultSendTimeout,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background send loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.log.Info("notification dispatcher started", zap.Int("queue_size", cap(d.queue)))
}

// Stop refuses new notices, sends whatever is already queued and waits for the loop to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	close(d.stopCh)
	d.wg.Wait()
	d.log.Info("notification dispatcher stopped")
}

// NotifyCancellation implements services.CancellationNotifier. It only
// enqueues; the emails are sent later by the background loop.
func (d *Dispatcher) NotifyCancellation(ctx context.Context, notice db.CancellationNotice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	emails, skipped, renderErr := BuildCancellationEmails(notice)
	if renderErr != nil {
		d.log.Warn("failed to render html cancellation email, sending plain text only",
			zap.String("offer_id", notice.OfferID), zap.Error(renderErr))
	}
	for _, p := range skipped {
		d.log.Warn("guardian has no email address, cancellation notice not sent",
			zap.String("offer_id", notice.OfferID),
			zap.String("participant_id", p.ParticipantID),
			zap.String("guardian_id", p.GuardianID))
	}

	dropped := 0
	for _, e := range emails {
		select {
		case d.queue <- e:
		default:
			dropped++
		}
	}

	d.log.Debug("queued cancellation notices",
		zap.String("offer_id", notice.OfferID),
		zap.Int("queued", len(emails)-dropped),
		zap.Int("skipped", len(skipped)))

	if dropped > 0 {
		return fmt.Errorf("%w: dropped %d of %d cancellation emails", ErrQueueFull, dropped, len(emails))
	}
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			d.drain()
			return
		case e := <-d.queue:
			d.deliver(e)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Email) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.log.Error("rate limiter wait failed, email not sent", zap.String("to", e.To), zap.Error(err))
		return
	}

	if err := d.sender.Send(ctx, e); err != nil {
		d.log.Error("failed to send email", zap.String("to", e.To), zap.String("subject", e.Subject), zap.Error(err))
		return
	}

	d.log.Info("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
}
