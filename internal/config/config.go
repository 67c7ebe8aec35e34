package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	StoreSourcePostgres = "postgres"
	StoreSourceFile     = "file"

	UnsupportedSectionDialplan = "dialplan"
	UnsupportedSectionEmpty    = "empty"
)

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

type StoreConfig struct {
	Source            string        `yaml:"source" validate:"oneof=postgres file"`
	SeedFile          string        `yaml:"seed_file" validate:"required_if=Source file"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	RedisURL          string        `yaml:"redis_url"`
	InvalidateChannel string        `yaml:"invalidate_channel"`
}

type RoutingConfig struct {
	DefaultTenant   string `yaml:"default_tenant"`
	InternalPrefix  string `yaml:"internal_prefix"`
	VoicemailPrefix string `yaml:"voicemail_prefix"`
	PSTNGateway     string `yaml:"pstn_gateway"`

	// E164Enabled is a pointer so an explicit false survives defaulting.
	E164Enabled *bool `yaml:"e164_enabled"`

	HookTimeout             time.Duration `yaml:"hook_timeout" validate:"gt=0"`
	UnsupportedSection      string        `yaml:"unsupported_section" validate:"oneof=dialplan empty"`
	DirectoryFallbackSecret string        `yaml:"directory_fallback_secret"`
}

type HookConfig struct {
	Name    string        `yaml:"name" validate:"required"`
	URL     string        `yaml:"url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// RateLimit caps calls per second; zero means unlimited.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

type Config struct {
	ListenAddr  string        `yaml:"listen_addr" validate:"required"`
	DBDSN       string        `yaml:"db_dsn"`
	XMLCurlUser string        `yaml:"xmlcurl_basic_user"`
	XMLCurlPass string        `yaml:"xmlcurl_basic_pass"`
	Log         LogConfig     `yaml:"log"`
	Store       StoreConfig   `yaml:"store"`
	Routing     RoutingConfig `yaml:"routing"`
	Hooks       []HookConfig  `yaml:"hooks" validate:"dive"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a YAML config, fills defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Store.Source == "" {
		c.Store.Source = StoreSourcePostgres
	}
	if c.Store.RefreshInterval == 0 {
		c.Store.RefreshInterval = 30 * time.Second
	}
	if c.Store.InvalidateChannel == "" {
		c.Store.InvalidateChannel = "voip:routing:invalidate"
	}
	if c.Routing.InternalPrefix == "" {
		c.Routing.InternalPrefix = "9"
	}
	if c.Routing.VoicemailPrefix == "" {
		c.Routing.VoicemailPrefix = "*9"
	}
	if c.Routing.PSTNGateway == "" {
		c.Routing.PSTNGateway = "pstn"
	}
	if c.Routing.E164Enabled == nil {
		enabled := true
		c.Routing.E164Enabled = &enabled
	}
	if c.Routing.HookTimeout == 0 {
		c.Routing.HookTimeout = 500 * time.Millisecond
	}
	if c.Routing.UnsupportedSection == "" {
		c.Routing.UnsupportedSection = UnsupportedSectionDialplan
	}
	for i := range c.Hooks {
		if c.Hooks[i].Timeout == 0 {
			c.Hooks[i].Timeout = c.Routing.HookTimeout
		}
	}
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}

	if c.Store.Source == StoreSourcePostgres && c.DBDSN == "" {
		return errors.New("db_dsn is required when store.source is postgres")
	}
	if (c.XMLCurlUser == "") != (c.XMLCurlPass == "") {
		return errors.New("xmlcurl_basic_user and xmlcurl_basic_pass must both be set or both be empty")
	}

	seen := make(map[string]bool, len(c.Hooks))
	for _, h := range c.Hooks {
		if seen[h.Name] {
			return fmt.Errorf("duplicate hook name %q", h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// DirectorySecret returns the key for synthetic directory passwords. When
// none is configured a random one is generated and kept for the process
// lifetime.
func (c *Config) DirectorySecret() ([]byte, error) {
	if c.Routing.DirectoryFallbackSecret != "" {
		return []byte(c.Routing.DirectoryFallbackSecret), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate directory secret: %w", err)
	}
	c.Routing.DirectoryFallbackSecret = hex.EncodeToString(key)
	slog.Warn("no directory_fallback_secret configured, generated ephemeral key")
	return []byte(c.Routing.DirectoryFallbackSecret), nil
}
