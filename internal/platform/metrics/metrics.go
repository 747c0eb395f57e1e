package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder exposes dispatch counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	decisions     *prometheus.CounterVec
	generations   *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers dispatch metrics on reg; a nil registerer defaults to the global one.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_threshold_decisions_total",
		Help: "Threshold policy decisions per zone",
	}, []string{"zone", "decision"})
	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_route_generations_total",
		Help: "Route generation attempts by outcome",
	}, []string{"zone", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_sequencer_fallbacks_total",
		Help: "Truck-loads sequenced in severity order after a trip optimisation failure",
	}, []string{"zone"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "collection_notifications_total",
		Help: "Notification deliveries by sender, kind and result",
	}, []string{"sender", "kind", "result"})

	var err error
	if decisions, err = register(reg, decisions); err != nil {
		return nil, err
	}
	if generations, err = register(reg, generations); err != nil {
		return nil, err
	}
	if fallbacks, err = register(reg, fallbacks); err != nil {
		return nil, err
	}
	if notifications, err = register(reg, notifications); err != nil {
		return nil, err
	}

	return &Recorder{
		decisions:     decisions,
		generations:   generations,
		fallbacks:     fallbacks,
		notifications: notifications,
	}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

func (r *Recorder) Decision(zone, decision string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(zone, decision).Inc()
}

func (r *Recorder) Generation(zone, outcome string) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(zone, outcome).Inc()
}

func (r *Recorder) Fallback(zone string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(zone).Inc()
}

func (r *Recorder) Notification(sender, kind string, ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.notifications.WithLabelValues(sender, kind, result).Inc()
}
