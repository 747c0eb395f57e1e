package repositories

import (
	"collection-route-service/internal/domain"
	"collection-route-service/internal/ports"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type IncidentSeed struct {
	Kind        string  `json:"kind" yaml:"kind"`
	Severity    int     `json:"severity" yaml:"severity"`
	Description string  `json:"description" yaml:"description"`
	Zone        string  `json:"zone" yaml:"zone"`
	Lon         float64 `json:"lon" yaml:"lon"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Validated   bool    `json:"validated" yaml:"validated"`
}

type DriverSeed struct {
	Name           string `json:"name" yaml:"name"`
	Phone          string `json:"phone" yaml:"phone"`
	LicenseClass   string `json:"license_class" yaml:"license_class"`
	ZonePreference string `json:"zone_preference" yaml:"zone_preference"`
}

type Seed struct {
	Threshold *int           `json:"severity_threshold" yaml:"severity_threshold"`
	Drivers   []DriverSeed   `json:"drivers" yaml:"drivers"`
	Incidents []IncidentSeed `json:"incidents" yaml:"incidents"`
}

// LoadSeed reads a JSON or YAML seed file, chosen by extension.
func LoadSeed(path string) (*Seed, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load seed: read %q: %w", path, err)
	}

	var s Seed
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bytes, &s); err != nil {
			return nil, fmt.Errorf("load seed: parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(bytes, &s); err != nil {
			return nil, fmt.Errorf("load seed: parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("load seed: unsupported extension %q", filepath.Ext(path))
	}
	return &s, nil
}

// Apply validates every record first, then writes them in one transaction.
func (s *Seed) Apply(ctx context.Context, store *SQLStore, now time.Time) error {
	incidents := make([]*domain.Incident, 0, len(s.Incidents))
	for i, item := range s.Incidents {
		sev := domain.Severity(item.Severity)
		if !sev.Valid() {
			return fmt.Errorf("seed incidents: invalid severity at index %d: %d", i+1, item.Severity)
		}
		zone, err := domain.ParseZone(item.Zone)
		if err != nil {
			return fmt.Errorf("seed incidents: index %d: %w", i+1, err)
		}
		inc := &domain.Incident{
			Kind:        strings.TrimSpace(item.Kind),
			Severity:    sev,
			Description: strings.TrimSpace(item.Description),
			Location:    domain.Coordinates{Lon: item.Lon, Lat: item.Lat},
			Zone:        zone,
			State:       domain.IncidentPending,
			ReportedAt:  now,
		}
		if item.Validated {
			at := now
			inc.State = domain.IncidentValidated
			inc.ValidatedAt = &at
		}
		incidents = append(incidents, inc)
	}

	drivers := make([]*domain.Driver, 0, len(s.Drivers))
	for i, item := range s.Drivers {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return fmt.Errorf("seed drivers: name at index %d cannot be empty", i+1)
		}
		pref, err := domain.ParseZonePreference(item.ZonePreference)
		if err != nil {
			return fmt.Errorf("seed drivers: index %d: %w", i+1, err)
		}
		drivers = append(drivers, &domain.Driver{
			Name:           name,
			Phone:          strings.TrimSpace(item.Phone),
			LicenseClass:   strings.TrimSpace(item.LicenseClass),
			State:          domain.DriverAvailable,
			ZonePreference: pref,
			HiredAt:        now,
		})
	}

	return store.InTx(ctx, func(q ports.Queries) error {
		if s.Threshold != nil {
			if err := q.PutSetting(ctx, SeverityThresholdKey, strconv.Itoa(*s.Threshold)); err != nil {
				return fmt.Errorf("seed settings: %w", err)
			}
		}
		for _, d := range drivers {
			if err := q.CreateDriver(ctx, d); err != nil {
				return fmt.Errorf("seed drivers: %w", err)
			}
		}
		for _, inc := range incidents {
			if err := q.CreateIncident(ctx, inc); err != nil {
				return fmt.Errorf("seed incidents: %w", err)
			}
		}
		return nil
	})
}
