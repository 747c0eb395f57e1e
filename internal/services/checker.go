package services

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/platform/logger"
	"context"
	"time"
)

// Checker re-evaluates every zone on a fixed interval.
type Checker struct {
	lifecycle *Lifecycle
	interval  time.Duration
	zones     []domain.Zone
	log       logger.Logger
}

func NewChecker(lc *Lifecycle, interval time.Duration, log logger.Logger) *Checker {
	if log == nil {
		log = logger.Nop{}
	}
	return &Checker{lifecycle: lc, interval: interval, zones: domain.Zones(), log: log}
}

// Run blocks until ctx is done. A non-positive interval disables the loop.
func (c *Checker) Run(ctx context.Context) {
	if c.interval <= 0 {
		c.log.Infof("periodic check disabled")
		return
	}
	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll evaluates each zone once, without a triggering incident.
func (c *Checker) CheckAll(ctx context.Context) []Evaluation {
	out := make([]Evaluation, 0, len(c.zones))
	for _, z := range c.zones {
		ev, err := c.lifecycle.Evaluate(ctx, z, nil)
		if err != nil {
			c.log.Errorf("periodic check zone %s: %v", z, err)
			continue
		}
		out = append(out, ev)
	}
	return out
}
