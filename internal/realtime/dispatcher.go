package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/podpulse/podpulse/internal/metrics"
	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventSource yields check-in events until its channel closes, which
// signals a lost transport.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan CheckInEvent, error)
}

// FeedRefresher recomputes and caches a pod's feed.
type FeedRefresher interface {
	RefreshFeed(ctx context.Context, podID string) (*models.Feed, error)
}

// FeedNotifier is the consumer registry the dispatcher pushes refreshed
// feeds through. *Hub is the production implementation.
type FeedNotifier interface {
	HasSubscribers(podID string) bool
	ActivePods() []string
	Broadcast(podID string, feed *models.Feed)
}

// Dispatcher ties the event bus to the feed aggregator: each check-in
// insertion event triggers a debounced recompute of the author's pod
// feed, pushed to the subscribed consumers. On transport loss it
// reconnects with backoff and resyncs every actively watched pod, since
// no event replay is available.
type Dispatcher struct {
	stream     EventSource
	feeds      FeedRefresher
	hub        FeedNotifier
	debounce   time.Duration
	maxElapsed time.Duration

	mu      sync.Mutex
	workers map[string]chan struct{}
}

// NewDispatcher creates a Dispatcher. debounce is the coalescing window
// for rapid-fire events per pod; maxElapsed bounds reconnect attempts
// before consumers are told the feed is degraded.
func NewDispatcher(stream EventSource, feeds FeedRefresher, hub FeedNotifier, debounce, maxElapsed time.Duration) *Dispatcher {
	return &Dispatcher{
		stream:     stream,
		feeds:      feeds,
		hub:        hub,
		debounce:   debounce,
		maxElapsed: maxElapsed,
		workers:    make(map[string]chan struct{}),
	}
}

// Run drives the subscription lifecycle until ctx is cancelled:
// Connecting -> Subscribed -> delivering -> Disconnected -> Connecting.
// It blocks and is meant to run in its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.maxElapsed

	for {
		if ctx.Err() != nil {
			return
		}

		events, err := d.stream.Subscribe(ctx)
		if err != nil {
			logger.Log.WithError(err).Warn("Event bus unreachable, retrying")
			wait := policy.NextBackOff()
			if wait == backoff.Stop {
				// Reconnect budget exhausted: tell consumers the feed
				// is degraded, then keep trying on a fresh schedule.
				d.signalDegraded()
				policy.Reset()
				wait = policy.NextBackOff()
			}
			metrics.DispatcherReconnects.Inc()
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		policy.Reset()

		// Events may have been missed while disconnected: one full
		// recompute per watched pod covers the gap.
		d.ResyncActive(ctx)

		for event := range events {
			d.handleEvent(ctx, event)
		}

		logger.Log.Warn("Event stream closed, reconnecting")
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, event CheckInEvent) {
	if event.PodID == "" {
		// Author belongs to no pod; nobody to notify.
		return
	}
	if !d.hub.HasSubscribers(event.PodID) {
		return
	}
	d.trigger(ctx, event.PodID)
}

// trigger schedules a debounced recompute for the pod. The capacity-one
// notify channel coalesces triggers that arrive while one is pending.
func (d *Dispatcher) trigger(ctx context.Context, podID string) {
	d.mu.Lock()
	notify, ok := d.workers[podID]
	if !ok {
		notify = make(chan struct{}, 1)
		d.workers[podID] = notify
		go d.worker(ctx, podID, notify)
	}
	d.mu.Unlock()

	select {
	case notify <- struct{}{}:
	default:
		metrics.TriggersCoalesced.Inc()
	}
}

func (d *Dispatcher) worker(ctx context.Context, podID string, notify chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
			timer := time.NewTimer(d.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			// Fold in anything that arrived during the window.
			select {
			case <-notify:
				metrics.TriggersCoalesced.Inc()
			default:
			}

			d.recompute(ctx, podID, "event")
		}
	}
}

// ResyncActive recomputes and pushes the feed of every pod that has at
// least one live consumer. Used after reconnects and by the periodic
// resync job.
func (d *Dispatcher) ResyncActive(ctx context.Context) {
	for _, podID := range d.hub.ActivePods() {
		d.recompute(ctx, podID, "resync")
	}
}

func (d *Dispatcher) recompute(ctx context.Context, podID, trigger string) {
	start := time.Now()
	feed, err := d.feeds.RefreshFeed(ctx, podID)
	if err != nil {
		logger.Log.WithError(err).WithField("pod_id", podID).Error("Feed recompute failed")
		return
	}

	metrics.FeedRecomputes.WithLabelValues(trigger).Inc()
	metrics.FeedRecomputeDuration.Observe(time.Since(start).Seconds())

	d.hub.Broadcast(podID, feed)
}

func (d *Dispatcher) signalDegraded() {
	now := time.Now().UTC()
	for _, podID := range d.hub.ActivePods() {
		objID, err := primitive.ObjectIDFromHex(podID)
		if err != nil {
			continue
		}
		logger.Log.WithField("pod_id", podID).Warn("Signalling degraded feed to consumers")
		d.hub.Broadcast(podID, &models.Feed{
			PodID:      objID,
			ComputedAt: now,
			Degraded:   true,
		})
	}
}
