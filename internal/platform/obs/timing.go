package obs

import (
	"collection-route-service/internal/platform/logger"
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

var (
	log logger.Logger = logger.New("obs")

	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collection_operation_duration_seconds",
		Help:    "Duration of timed operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "outcome"})
)

// SetLogger replaces the logger used for timing lines.
func SetLogger(l logger.Logger) { log = l }

// Register exposes the operation histogram on reg, reusing an existing collector.
func Register(reg prometheus.Registerer) error {
	if err := reg.Register(opDuration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return err
		}
		opDuration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return nil
}

// WithRequestID stores id on ctx for later timing lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// Time starts timing op; call the returned func with the address of the named error result.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			opDuration.WithLabelValues(name, "error").Observe(dur.Seconds())
			log.Warnf("req_id=%s op=%s dur=%dms err=%v", reqID, name, dur.Milliseconds(), *errp)
			return
		}
		opDuration.WithLabelValues(name, "ok").Observe(dur.Seconds())
		log.Debugf("req_id=%s op=%s dur=%dms", reqID, name, dur.Milliseconds())
	}
}
