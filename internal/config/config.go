package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides, e.g. CRS_ORACLE__BASE_URL.
const EnvPrefix = "CRS_"

type Config struct {
	Server    ServerConfig              `json:"server"`
	Database  DatabaseConfig            `json:"database"`
	Oracle    OracleConfig              `json:"oracle"`
	Cache     CacheConfig               `json:"cache"`
	Notify    NotifyConfig              `json:"notify"`
	Dispatch  DispatchConfig            `json:"dispatch"`
	Logging   LoggingConfig             `json:"logging"`
	Endpoints map[string]EndpointConfig `json:"endpoints"`
}

type ServerConfig struct {
	Addr              string        `json:"addr"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"`
	URL      string `json:"url"`
	SeedPath string `json:"seed_path"`
}

type OracleConfig struct {
	BaseURL       string        `json:"base_url"`
	Profile       string        `json:"profile"`
	HealthTimeout time.Duration `json:"health_timeout"`
	RouteTimeout  time.Duration `json:"route_timeout"`
	TripTimeout   time.Duration `json:"trip_timeout"`
}

type CacheConfig struct {
	Backend   string        `json:"backend"`
	RedisAddr string        `json:"redis_addr"`
	RedisDB   int           `json:"redis_db"`
	TTL       time.Duration `json:"ttl"`
}

type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

type NotifyConfig struct {
	Buffer int        `json:"buffer"`
	MQTT   MQTTConfig `json:"mqtt"`
}

type DispatchConfig struct {
	DefaultThreshold     int           `json:"default_threshold"`
	CheckInterval        time.Duration `json:"check_interval"`
	SequencerConcurrency int           `json:"sequencer_concurrency"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type PointConfig struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type EndpointConfig struct {
	Depot PointConfig `json:"depot"`
	Dump  PointConfig `json:"dump"`
}

// Load reads .env, the optional config file at path, then CRS_ environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config: read .env: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("load config: unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load config: env overrides: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("load config: unmarshal: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.Oracle.SetDefaults()
	c.Cache.SetDefaults()
	c.Notify.SetDefaults()
	c.Dispatch.SetDefaults()
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if len(c.Endpoints) == 0 {
		c.Endpoints = defaultEndpoints()
	}
}

func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Notify.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if _, err := NewStaticEndpoints(c.Endpoints); err != nil {
		return err
	}
	return nil
}

func (s *ServerConfig) SetDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = 5 * time.Second
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 10 * time.Second
	}
	// Generation waits on trip optimisation, which may take up to a minute.
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 120 * time.Second
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = 60 * time.Second
	}
}

func (d *DatabaseConfig) SetDefaults() {
	if d.Driver == "" {
		d.Driver = "sqlite"
	}
	if d.URL == "" && d.Driver == "sqlite" {
		d.URL = "data/app.db"
	}
}

func (d DatabaseConfig) Validate() error {
	switch d.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", d.Driver)
	}
	if strings.TrimSpace(d.URL) == "" {
		return errors.New("database.url is required")
	}
	return nil
}

func (o *OracleConfig) SetDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://router.project-osrm.org"
	}
	if o.Profile == "" {
		o.Profile = "driving"
	}
	if o.HealthTimeout == 0 {
		o.HealthTimeout = 5 * time.Second
	}
	if o.RouteTimeout == 0 {
		o.RouteTimeout = 30 * time.Second
	}
	if o.TripTimeout == 0 {
		o.TripTimeout = 60 * time.Second
	}
}

func (c *CacheConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "sql"
	}
	if c.TTL == 0 {
		c.TTL = 24 * time.Hour
	}
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "none", "sql":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be none, sql or redis, got %q", c.Backend)
	}
	return nil
}

func (n *NotifyConfig) SetDefaults() {
	if n.Buffer <= 0 {
		n.Buffer = 64
	}
	if n.MQTT.ClientID == "" {
		n.MQTT.ClientID = "collection-route-service"
	}
	if n.MQTT.TopicPrefix == "" {
		n.MQTT.TopicPrefix = "collection/events"
	}
}

func (n NotifyConfig) Validate() error {
	if n.MQTT.Enabled && n.MQTT.Broker == "" {
		return errors.New("notify.mqtt.broker is required when mqtt is enabled")
	}
	if n.MQTT.QoS > 2 {
		return fmt.Errorf("notify.mqtt.qos must be 0, 1 or 2, got %d", n.MQTT.QoS)
	}
	return nil
}

func (d *DispatchConfig) SetDefaults() {
	if d.DefaultThreshold == 0 {
		d.DefaultThreshold = 20
	}
	if d.CheckInterval == 0 {
		d.CheckInterval = 5 * time.Minute
	}
	if d.SequencerConcurrency == 0 {
		d.SequencerConcurrency = 4
	}
}

func (d DispatchConfig) Validate() error {
	if d.DefaultThreshold < 0 {
		return fmt.Errorf("dispatch.default_threshold must not be negative, got %d", d.DefaultThreshold)
	}
	if d.SequencerConcurrency < 1 {
		return fmt.Errorf("dispatch.sequencer_concurrency must be positive, got %d", d.SequencerConcurrency)
	}
	return nil
}

func defaultEndpoints() map[string]EndpointConfig {
	return map[string]EndpointConfig{
		"A": {
			Depot: PointConfig{Lon: -78.4678, Lat: -0.1807},
			Dump:  PointConfig{Lon: -78.4412, Lat: -0.0962},
		},
		"B": {
			Depot: PointConfig{Lon: -78.5249, Lat: -0.2295},
			Dump:  PointConfig{Lon: -78.5583, Lat: -0.3127},
		},
	}
}
