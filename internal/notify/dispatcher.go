// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/metrics"
)

const (
	eventsTopic = "notify.events"

	// deliveryWorkers bounds concurrent event fan-outs.
	deliveryWorkers = 5

	// channelBuffer absorbs bursts between Publish and the workers.
	channelBuffer = 64

	// drainTimeout caps the wait for in-flight deliveries on shutdown.
	drainTimeout = 10 * time.Second

	// Breaker settings per endpoint: trip after consecutive failures,
	// probe again after the open interval.
	breakerFailureThreshold = 3
	breakerOpenTimeout      = time.Minute
)

// guardedEndpoint pairs an endpoint with its circuit breaker.
type guardedEndpoint struct {
	endpoint Endpoint
	breaker  *gobreaker.CircuitBreaker[any]
}

// Dispatcher fans events out to configured endpoints through an in-process
// pub/sub. Publishing is a channel handoff; delivery happens on a bounded
// worker pool with a per-endpoint circuit breaker and a shared rate limiter.
//
// Dispatcher implements Publisher.
type Dispatcher struct {
	cfg     config.NotifyConfig
	pubsub  *gochannel.GoChannel
	targets []*guardedEndpoint
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher builds a dispatcher for the configured endpoints.
// Run must be called before published events are delivered.
func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	logger := logging.WithComponent("notify")

	d := &Dispatcher{
		cfg:     cfg,
		limiter: newDeliveryLimiter(cfg.RatePerMinute),
		logger:  logger,
	}

	for _, rawURL := range cfg.WebhookURLs {
		d.addEndpoint(NewWebhookEndpoint(rawURL, cfg.Timeout))
	}
	for _, rawURL := range cfg.DiscordURLs {
		d.addEndpoint(NewDiscordEndpoint(rawURL, cfg.Timeout))
	}
	for _, rawURL := range cfg.SlackURLs {
		d.addEndpoint(NewSlackEndpoint(rawURL, cfg.Timeout))
	}

	d.pubsub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: channelBuffer,
	}, newWatermillLogger(logger))

	return d
}

func (d *Dispatcher) addEndpoint(endpoint Endpoint) {
	name := endpoint.Kind() + "-" + endpoint.Host()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
			d.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Notification circuit breaker state changed")
		},
	}

	d.targets = append(d.targets, &guardedEndpoint{
		endpoint: endpoint,
		breaker:  gobreaker.NewCircuitBreaker[any](settings),
	})
}

// Endpoints reports the number of configured delivery endpoints.
func (d *Dispatcher) Endpoints() int {
	return len(d.targets)
}

// Publish enqueues an event for delivery. Suppressed kinds are dropped
// silently; enqueue failures are counted and logged, never returned.
func (d *Dispatcher) Publish(event Event) {
	if !d.shouldDeliver(event.Kind) {
		d.logger.Debug().
			Str("kind", string(event.Kind)).
			Str("target", event.TargetName).
			Msg("Notification suppressed")
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		metrics.RecordNotificationDropped()
		return
	}
	d.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.RecordNotificationDropped()
		d.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("Notification event not encodable")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := d.pubsub.Publish(eventsTopic, msg); err != nil {
		metrics.RecordNotificationDropped()
		d.logger.Warn().Err(err).Str("kind", string(event.Kind)).Msg("Notification event dropped")
	}
}

// shouldDeliver applies the global enable switch and the per-kind toggles.
func (d *Dispatcher) shouldDeliver(kind Kind) bool {
	if !d.cfg.Enabled || len(d.targets) == 0 {
		return false
	}
	switch kind {
	case KindBackupSuccess, KindRestoreSuccess:
		return d.cfg.OnSuccess
	case KindBackupFailed, KindRestoreFailed:
		return d.cfg.OnFailure
	case KindConnectionLost:
		return d.cfg.OnConnectionLost
	default:
		return false
	}
}

// Run subscribes to the event stream and delivers until ctx is canceled,
// then waits up to drainTimeout for in-flight deliveries to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.pubsub.Subscribe(ctx, eventsTopic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", eventsTopic, err)
	}

	// Deliveries get their own context so in-flight sends can complete
	// during the drain window after ctx is canceled.
	deliverCtx, cancelDeliveries := context.WithCancel(context.Background())
	defer cancelDeliveries()

	var wg sync.WaitGroup
	for i := 0; i < deliveryWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				// Ack on receipt: the next event can go to another worker,
				// and a failed delivery is terminal, never redelivered.
				msg.Ack()
				d.deliver(deliverCtx, msg)
			}
		}()
	}

	d.logger.Info().
		Int("endpoints", len(d.targets)).
		Int("workers", deliveryWorkers).
		Msg("Notification dispatcher started")

	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info().Msg("Notification dispatcher drained")
	case <-time.After(drainTimeout):
		cancelDeliveries()
		d.logger.Warn().Dur("timeout", drainTimeout).Msg("Notification drain timed out")
	}

	return ctx.Err()
}

// Close releases the pub/sub. Call once, after Run has returned.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.pubsub.Close()
}

// deliver decodes one event and sends it to every endpoint in turn.
func (d *Dispatcher) deliver(ctx context.Context, msg *message.Message) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		metrics.RecordNotificationDropped()
		d.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Undecodable notification event")
		return
	}

	for _, g := range d.targets {
		d.send(ctx, g, event)
	}
}

func (d *Dispatcher) send(ctx context.Context, g *guardedEndpoint, event Event) {
	logger := d.logger.With().
		Str("endpoint", g.endpoint.Kind()).
		Str("host", g.endpoint.Host()).
		Str("kind", string(event.Kind)).
		Logger()

	if err := d.limiter.Wait(ctx); err != nil {
		metrics.RecordNotification(g.endpoint.Kind(), "rejected")
		logger.Warn().Msg("Notification delivery rate limit wait canceled")
		return
	}

	_, err := g.breaker.Execute(func() (any, error) {
		sendCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout())
		defer cancel()
		return nil, g.endpoint.Send(sendCtx, event)
	})

	switch {
	case err == nil:
		metrics.RecordNotification(g.endpoint.Kind(), "success")
		logger.Debug().Msg("Notification delivered")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordNotification(g.endpoint.Kind(), "rejected")
		logger.Warn().Msg("Notification rejected by open circuit breaker")
	default:
		metrics.RecordNotification(g.endpoint.Kind(), "failure")
		logger.Warn().Err(err).Msg("Notification delivery failed")
	}
}

func (d *Dispatcher) deliveryTimeout() time.Duration {
	if d.cfg.Timeout > 0 {
		return d.cfg.Timeout
	}
	return 10 * time.Second
}

// newDeliveryLimiter converts the per-minute cap into a token bucket shared
// by all endpoints. A non-positive cap disables limiting.
func newDeliveryLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// watermillLogger adapts zerolog to watermill.LoggerAdapter so pub/sub
// internals share the process log sink.
type watermillLogger struct {
	logger zerolog.Logger
}

func newWatermillLogger(logger zerolog.Logger) watermillLogger {
	return watermillLogger{logger: logger}
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.withFields(w.logger.Error().Err(err), fields).Msg(msg)
}

// Info downgrades to debug: gochannel logs every publish at info.
func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.withFields(w.logger.Debug(), fields).Msg(msg)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.withFields(w.logger.Debug(), fields).Msg(msg)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.withFields(w.logger.Trace(), fields).Msg(msg)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	logger := w.logger
	for key, value := range fields {
		logger = logger.With().Interface(key, value).Logger()
	}
	return watermillLogger{logger: logger}
}

func (w watermillLogger) withFields(evt *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for key, value := range fields {
		evt = evt.Interface(key, value)
	}
	return evt
}
