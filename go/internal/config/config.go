// Package config loads process settings from an optional YAML file and then
// lets environment variables override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/draftoverlay/go/internal/broadcast"
	"github.com/mcdev12/draftoverlay/go/internal/dbconfig"
	"github.com/mcdev12/draftoverlay/go/internal/models"
)

const DefaultPath = "config.yaml"

// Transport kinds.
const (
	TransportMemory = "memory"
	TransportNATS   = "nats"
	TransportRedis  = "redis"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	LogLevel string               `yaml:"log_level"`
	Draft    models.DraftSettings `yaml:"draft"`

	Broadcast struct {
		Transport string `yaml:"transport"`
		Channel   string `yaml:"channel"`
	} `yaml:"broadcast"`

	NATS struct {
		URL           string        `yaml:"url"`
		SubjectPrefix string        `yaml:"subject_prefix"`
		MaxReconnects int           `yaml:"max_reconnects"`
		ReconnectWait time.Duration `yaml:"reconnect_wait"`
	} `yaml:"nats"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Store struct {
		Backend   string `yaml:"backend"`
		Namespace string `yaml:"namespace"`
	} `yaml:"store"`

	Database dbconfig.Config `yaml:"database"`

	Admin struct {
		Port string `yaml:"port"`
	} `yaml:"admin"`

	Overlay struct {
		Port  string   `yaml:"port"`
		Kinds []string `yaml:"kinds"`
	} `yaml:"overlay"`

	Gateway struct {
		Port string `yaml:"port"`
	} `yaml:"gateway"`
}

// Default is the configuration used when neither file nor environment says otherwise.
func Default() *Config {
	var c Config
	c.LogLevel = "info"
	c.Draft = models.DefaultDraftSettings()
	c.Broadcast.Transport = TransportMemory
	c.Broadcast.Channel = broadcast.DefaultChannelName

	nats := broadcast.DefaultNATSConfig()
	c.NATS.URL = nats.URL
	c.NATS.SubjectPrefix = nats.SubjectPrefix
	c.NATS.MaxReconnects = nats.MaxReconnects
	c.NATS.ReconnectWait = nats.ReconnectWait

	c.Redis.Addr = "localhost:6379"
	c.Store.Backend = StoreMemory
	c.Store.Namespace = "draft-overlay"
	c.Database = dbconfig.NewConfigFromEnv()
	c.Admin.Port = "8080"
	c.Overlay.Port = "8082"
	c.Overlay.Kinds = []string{"display", "board", "info_panel", "best_available"}
	c.Gateway.Port = "8081"
	return &c
}

// Load reads path if it exists, then applies environment overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path is CONFIG_PATH or config.yaml.
func Path() string {
	return getEnv("CONFIG_PATH", DefaultPath)
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Draft.TeamsPerRound = getEnvAsInt("DRAFT_TEAMS", c.Draft.TeamsPerRound)
	c.Draft.TotalRounds = getEnvAsInt("DRAFT_ROUNDS", c.Draft.TotalRounds)
	c.Draft.DefaultTimerSeconds = getEnvAsInt("DRAFT_TIMER_SECONDS", c.Draft.DefaultTimerSeconds)

	c.Broadcast.Transport = strings.ToLower(getEnv("BROADCAST_TRANSPORT", c.Broadcast.Transport))
	c.Broadcast.Channel = getEnv("BROADCAST_CHANNEL", c.Broadcast.Channel)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.Namespace = getEnv("STORE_NAMESPACE", c.Store.Namespace)

	c.Admin.Port = getEnv("PORT", c.Admin.Port)
	c.Overlay.Port = getEnv("OVERLAY_PORT", c.Overlay.Port)
	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	if kinds := getEnv("OVERLAY_KINDS", ""); kinds != "" {
		c.Overlay.Kinds = strings.Split(kinds, ",")
	}
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Broadcast.Transport {
	case TransportMemory, TransportNATS, TransportRedis:
	default:
		return fmt.Errorf("unknown broadcast transport %q", c.Broadcast.Transport)
	}
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Broadcast.Channel == "" {
		return errors.New("broadcast channel name is empty")
	}
	if c.Draft.TeamsPerRound <= 0 || c.Draft.TotalRounds <= 0 {
		return fmt.Errorf("invalid draft shape: %d teams x %d rounds", c.Draft.TeamsPerRound, c.Draft.TotalRounds)
	}
	if !models.IsTimerOption(c.Draft.DefaultTimerSeconds) {
		return fmt.Errorf("default timer %ds is not one of %v", c.Draft.DefaultTimerSeconds, models.TimerOptions)
	}
	return nil
}

// NATSConfig converts the NATS section for the broadcast package.
func (c *Config) NATSConfig() broadcast.NATSConfig {
	return broadcast.NATSConfig{
		URL:           c.NATS.URL,
		SubjectPrefix: c.NATS.SubjectPrefix,
		MaxReconnects: c.NATS.MaxReconnects,
		ReconnectWait: c.NATS.ReconnectWait,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
