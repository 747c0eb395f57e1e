package repositories

import (
	"collection-route-service/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SeverityThresholdKey is the settings row holding the generation threshold.
const SeverityThresholdKey = "severity_threshold"

func (q *queries) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := q.queryRow(ctx, `SELECT value FROM settings WHERE name = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return v, true, nil
}

func (q *queries) PutSetting(ctx context.Context, key, value string) error {
	_, err := q.exec(ctx, `
	INSERT INTO settings (name, value) VALUES (?, ?)
	ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

// ThresholdSetting implements ports.ConfigProvider over the settings table.
// The row is read on every call so changes apply to the next decision.
type ThresholdSetting struct {
	Q       ports.Queries
	Default int
}

func NewThresholdSetting(q ports.Queries, def int) *ThresholdSetting {
	return &ThresholdSetting{Q: q, Default: def}
}

func (t *ThresholdSetting) SeverityThreshold(ctx context.Context) (int, error) {
	v, ok, err := t.Q.GetSetting(ctx, SeverityThresholdKey)
	if err != nil {
		return 0, fmt.Errorf("severity threshold: %w", err)
	}
	if !ok {
		return t.Default, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("severity threshold: parse %q: %w", v, err)
	}
	return n, nil
}

func (t *ThresholdSetting) SetSeverityThreshold(ctx context.Context, n int) error {
	return t.Q.PutSetting(ctx, SeverityThresholdKey, strconv.Itoa(n))
}

// EnsureDefault writes the default threshold if no row exists yet.
func (t *ThresholdSetting) EnsureDefault(ctx context.Context) error {
	_, ok, err := t.Q.GetSetting(ctx, SeverityThresholdKey)
	if err != nil || ok {
		return err
	}
	return t.SetSeverityThreshold(ctx, t.Default)
}
