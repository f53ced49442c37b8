// Package config provides configuration management for the tear film
// analyzer services.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/guideline"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/tear-film-analyzer/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("TEARFILM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.rate_burst", 40)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "tear_film_analyzer")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// History defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "data/history.db")
	viper.SetDefault("history.postgres_url", "")

	// Cache defaults
	viper.SetDefault("cache.plan_cache_size", 64)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Guideline cutoff defaults; zero means "use the published value"
	viper.SetDefault("guideline.osmolarity_cutoff", 0)
	viper.SetDefault("guideline.tear_breakup_cutoff", 0)
	viper.SetDefault("guideline.dropout_cutoff", 0)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetHistoryConfig returns history storage configuration
func (m *Manager) GetHistoryConfig() *domain.HistoryConfig {
	return &m.config.History
}

// Cutoffs returns the published guideline cutoffs with any configured
// overrides applied. Only cutoffs likely to be revised between guideline
// editions are overridable; the decision tables themselves are code.
func (m *Manager) Cutoffs() guideline.Cutoffs {
	cutoffs := guideline.DefaultCutoffs()
	g := m.config.Guideline
	if g.OsmolarityCutoff > 0 {
		cutoffs.Osmolarity = g.OsmolarityCutoff
	}
	if g.TearBreakupCutoff > 0 {
		cutoffs.TearBreakup = g.TearBreakupCutoff
	}
	if g.DropoutCutoff > 0 {
		cutoffs.Dropout = g.DropoutCutoff
	}
	return cutoffs
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate limit: %f", config.Server.RateLimitRPS)
	}

	// Validate history configuration
	switch config.History.Backend {
	case "sqlite":
		if config.History.SQLitePath == "" {
			return fmt.Errorf("sqlite history backend requires a database path")
		}
	case "postgres":
		if config.History.PostgresURL == "" {
			return fmt.Errorf("postgres history backend requires a connection URL")
		}
	default:
		return fmt.Errorf("invalid history backend: %s", config.History.Backend)
	}

	// Validate database configuration
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	// Guideline overrides must be physiologically plausible when set
	g := config.Guideline
	if g.OsmolarityCutoff != 0 && (g.OsmolarityCutoff < 280 || g.OsmolarityCutoff > 380) {
		return fmt.Errorf("implausible osmolarity cutoff: %f", g.OsmolarityCutoff)
	}
	if g.TearBreakupCutoff != 0 && (g.TearBreakupCutoff < 1 || g.TearBreakupCutoff > 30) {
		return fmt.Errorf("implausible tear breakup cutoff: %f", g.TearBreakupCutoff)
	}
	if g.DropoutCutoff != 0 && (g.DropoutCutoff < 1 || g.DropoutCutoff > 100) {
		return fmt.Errorf("implausible dropout cutoff: %f", g.DropoutCutoff)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}
