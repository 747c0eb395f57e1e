package notify

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"collection-route-service/internal/platform/metrics"
	"context"
	"time"
)

// Sender delivers one event to an external channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, ev domain.Event) error
}

// Dispatcher implements ports.NotificationSink. Notify enqueues without blocking;
// Run delivers each event to every sender once, logging failures.
type Dispatcher struct {
	bus     *Bus[domain.Event]
	events  <-chan domain.Event
	senders []Sender
	log     logger.Logger
	metrics *metrics.Recorder
	timeout time.Duration
}

func NewDispatcher(buffer int, log logger.Logger, rec *metrics.Recorder, senders ...Sender) *Dispatcher {
	if log == nil {
		log = logger.Nop{}
	}
	bus := NewBus[domain.Event](buffer)
	return &Dispatcher{
		bus:     bus,
		events:  bus.Subscribe(),
		senders: senders,
		log:     log,
		metrics: rec,
		timeout: 5 * time.Second,
	}
}

func (d *Dispatcher) Notify(_ context.Context, ev domain.Event) {
	if !d.bus.Publish(ev) {
		d.log.Warnf("notification %s (%s) dropped: queue full", ev.ID, ev.Kind)
		d.metrics.Notification("queue", string(ev.Kind), false)
	}
}

// Run delivers queued events until ctx is done or Close is called.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev domain.Event) {
	for _, s := range d.senders {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Send(sctx, ev)
		cancel()
		if err != nil {
			d.log.Errorf("notification %s (%s) via %s failed: %v", ev.ID, ev.Kind, s.Name(), err)
			d.metrics.Notification(s.Name(), string(ev.Kind), false)
			continue
		}
		d.metrics.Notification(s.Name(), string(ev.Kind), true)
	}
}

// Close stops accepting events and lets Run drain and return.
func (d *Dispatcher) Close() { d.bus.Close() }

// LogSender writes every event to the service log.
type LogSender struct {
	Log logger.Logger
}

func (LogSender) Name() string { return "log" }

func (s LogSender) Send(_ context.Context, ev domain.Event) error {
	s.Log.Infof("event id=%s kind=%s zone=%s route=%d incident=%d reason=%q",
		ev.ID, ev.Kind, ev.Zone, ev.RouteID, ev.IncidentID, ev.Reason)
	return nil
}
