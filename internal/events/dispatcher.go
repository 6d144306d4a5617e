package events

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs/retry"
)

var _ auth.EventPublisher = (*Dispatcher)(nil)

// Sink delivers one event. It is called from dispatcher workers only.
type Sink interface {
	Send(ctx context.Context, ev auth.SessionEvent) error
}

var (
	mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_events_total",
		Help: "Session events by outcome (sent, failed, dropped).",
	}, []string{"kind", "outcome"})
	mQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_events_queue_depth",
		Help: "Events waiting for a worker.",
	})
)

type Config struct {
	Workers      int
	QueueSize    int
	DrainTimeout time.Duration
}

type envelope struct {
	ev      auth.SessionEvent
	carrier propagation.MapCarrier
}

// Dispatcher decouples request handling from event delivery. Publish never
// blocks; when the queue is full the event is dropped and counted.
type Dispatcher struct {
	log    *zap.Logger
	sink   Sink
	policy retry.Policy
	cfg    Config
	queue  chan envelope
}

func NewDispatcher(log *zap.Logger, sink Sink, policy retry.Policy, cfg Config) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	return &Dispatcher{
		log:    log.With(zap.String("component", "events.dispatcher")),
		sink:   sink,
		policy: policy,
		cfg:    cfg,
		queue:  make(chan envelope, cfg.QueueSize),
	}
}

func (d *Dispatcher) Publish(ctx context.Context, ev auth.SessionEvent) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	select {
	case d.queue <- envelope{ev: ev, carrier: carrier}:
		mQueueDepth.Set(float64(len(d.queue)))
	default:
		mEvents.WithLabelValues(string(ev.Kind), "dropped").Inc()
		obs.WithTrace(ctx, d.log).Warn("event queue full, dropping",
			zap.String("kind", string(ev.Kind)), zap.String("subject", ev.SubjectID))
	}
}

// Run blocks until ctx is done, then gives queued events DrainTimeout to be
// delivered before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx)
		}()
	}
	d.log.Info("event workers started", zap.Int("workers", d.cfg.Workers))
	wg.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout)
	defer cancel()
	for {
		select {
		case env := <-d.queue:
			d.deliver(drainCtx, env)
		default:
			d.log.Info("event workers stopped")
			return
		}
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.queue:
			mQueueDepth.Set(float64(len(d.queue)))
			d.deliver(ctx, env)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, env envelope) {
	parent := otel.GetTextMapPropagator().Extract(ctx, env.carrier)
	spanCtx, span := otel.Tracer("events.dispatcher").Start(parent, "events.deliver")
	span.SetAttributes(
		attribute.String("event.kind", string(env.ev.Kind)),
		attribute.String("event.subject", env.ev.SubjectID),
	)
	defer span.End()

	err := retry.Do(spanCtx, func(ctx context.Context) error { return d.sink.Send(ctx, env.ev) }, d.policy)
	if err != nil {
		span.RecordError(err)
		mEvents.WithLabelValues(string(env.ev.Kind), "failed").Inc()
		obs.WithTrace(spanCtx, d.log).Error("event delivery failed",
			zap.String("kind", string(env.ev.Kind)), zap.Error(err))
		return
	}
	mEvents.WithLabelValues(string(env.ev.Kind), "sent").Inc()
}

// Discard is the publisher used when event delivery is disabled.
type Discard struct{}

func (Discard) Publish(context.Context, auth.SessionEvent) {}
