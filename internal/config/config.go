// Package config provides Viper-based configuration loading for the MUD server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name is the server name shown in the login banner.
	Name string `mapstructure:"name"`
	// ContentDir is the directory holding world and catalog YAML files.
	ContentDir string `mapstructure:"content_dir"`
	// ScriptDir is the directory holding Lua room scripts.
	ScriptDir string `mapstructure:"script_dir"`
	// HubWorldID is the world players start in and return to on death.
	HubWorldID string `mapstructure:"hub_world_id"`
	// HubRoomID is the room players start in and return to on death.
	HubRoomID string `mapstructure:"hub_room_id"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// WebConfig holds websocket bridge settings.
type WebConfig struct {
	// Host is the bind address for the websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the websocket listener.
	Port int `mapstructure:"port"`
	// TelnetAddr is the upstream telnet server the bridge proxies to.
	TelnetAddr string `mapstructure:"telnet_addr"`
	// FlushInterval is how long output lines are coalesced before sending.
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	// FlushMaxLines is the line count that forces an early flush.
	FlushMaxLines int `mapstructure:"flush_max_lines"`
	// StaticDir is an optional directory of static assets to serve; empty disables it.
	StaticDir string `mapstructure:"static_dir"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

// GameConfig holds gameplay timing and pacing settings.
type GameConfig struct {
	// RegenInterval is the stamina regeneration tick period.
	RegenInterval time.Duration `mapstructure:"regen_interval"`
	// AuthTimeout is how long a connection may idle at the login prompts.
	AuthTimeout time.Duration `mapstructure:"auth_timeout"`
	// AuthAttempts is the number of failed logins before disconnect.
	AuthAttempts int `mapstructure:"auth_attempts"`
	// SetupTimeout is how long a connection may idle during character creation.
	SetupTimeout time.Duration `mapstructure:"setup_timeout"`
	// IdleTimeout is how long a playing session may idle before disconnect.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// InventoryPageSize is the number of items shown per inventory page.
	InventoryPageSize int `mapstructure:"inventory_page_size"`
	// RespawnCleanupInterval is how often expired respawn records are purged.
	RespawnCleanupInterval time.Duration `mapstructure:"respawn_cleanup_interval"`
}

// QuestConfig holds quest generation settings.
type QuestConfig struct {
	// Provider selects the quest generator: "template" or "anthropic".
	Provider string `mapstructure:"provider"`
	// APIKey is the Anthropic API key; required when Provider is "anthropic".
	APIKey string `mapstructure:"api_key"`
	// Model is the Anthropic model identifier.
	Model string `mapstructure:"model"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Web      WebConfig      `mapstructure:"web"`
	Game     GameConfig     `mapstructure:"game"`
	Quests   QuestConfig    `mapstructure:"quests"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWeb(c.Web); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateQuests(c.Quests); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if s.ContentDir == "" {
		errs = append(errs, "server.content_dir must not be empty")
	}
	if s.HubWorldID == "" {
		errs = append(errs, "server.hub_world_id must not be empty")
	}
	if s.HubRoomID == "" {
		errs = append(errs, "server.hub_room_id must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWeb(w WebConfig) error {
	var errs []string
	if w.Port < 1 || w.Port > 65535 {
		errs = append(errs, fmt.Sprintf("web.port must be 1-65535, got %d", w.Port))
	}
	if w.TelnetAddr == "" {
		errs = append(errs, "web.telnet_addr must not be empty")
	}
	if w.FlushInterval <= 0 {
		errs = append(errs, "web.flush_interval must be positive")
	}
	if w.FlushMaxLines < 1 {
		errs = append(errs, fmt.Sprintf("web.flush_max_lines must be >= 1, got %d", w.FlushMaxLines))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.RegenInterval <= 0 {
		errs = append(errs, "game.regen_interval must be positive")
	}
	if g.AuthTimeout <= 0 {
		errs = append(errs, "game.auth_timeout must be positive")
	}
	if g.AuthAttempts < 1 {
		errs = append(errs, fmt.Sprintf("game.auth_attempts must be >= 1, got %d", g.AuthAttempts))
	}
	if g.SetupTimeout <= 0 {
		errs = append(errs, "game.setup_timeout must be positive")
	}
	if g.IdleTimeout <= 0 {
		errs = append(errs, "game.idle_timeout must be positive")
	}
	if g.InventoryPageSize < 1 {
		errs = append(errs, fmt.Sprintf("game.inventory_page_size must be >= 1, got %d", g.InventoryPageSize))
	}
	if g.RespawnCleanupInterval <= 0 {
		errs = append(errs, "game.respawn_cleanup_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateQuests(q QuestConfig) error {
	validProviders := map[string]bool{"template": true, "anthropic": true}
	if !validProviders[q.Provider] {
		return fmt.Errorf("quests.provider must be one of [template, anthropic], got %q", q.Provider)
	}
	if q.Provider == "anthropic" {
		if q.APIKey == "" {
			return errors.New("quests.api_key must not be empty when quests.provider is anthropic")
		}
		if q.Model == "" {
			return errors.New("quests.model must not be empty when quests.provider is anthropic")
		}
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with MUD_ prefix
	v.SetEnvPrefix("MUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "DungeonMUD")
	v.SetDefault("server.content_dir", "content")
	v.SetDefault("server.script_dir", "scripts")
	v.SetDefault("server.hub_world_id", "hub")
	v.SetDefault("server.hub_room_id", "town_square")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mud")
	v.SetDefault("database.password", "mud")
	v.SetDefault("database.name", "mud")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "30s")

	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", 8080)
	v.SetDefault("web.telnet_addr", "127.0.0.1:4000")
	v.SetDefault("web.flush_interval", "50ms")
	v.SetDefault("web.flush_max_lines", 15)
	v.SetDefault("web.static_dir", "")

	v.SetDefault("game.regen_interval", "3s")
	v.SetDefault("game.auth_timeout", "30s")
	v.SetDefault("game.auth_attempts", 3)
	v.SetDefault("game.setup_timeout", "60s")
	v.SetDefault("game.idle_timeout", "5m")
	v.SetDefault("game.inventory_page_size", 8)
	v.SetDefault("game.respawn_cleanup_interval", "1m")

	v.SetDefault("quests.provider", "template")
	v.SetDefault("quests.model", "claude-sonnet-4-20250514")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
