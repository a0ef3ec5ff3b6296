// Package config loads mnemo configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for mnemo.
type Config struct {
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// String returns a safe representation with the password masked.
func (c Neo4jConfig) String() string {
	masked := "***"
	if c.Password == "" {
		masked = ""
	}
	return fmt.Sprintf("Neo4jConfig{URI:%s, Username:%s, Password:%s, Database:%s}", c.URI, c.Username, masked, c.Database)
}

// GraphConfig holds memory graph defaults.
type GraphConfig struct {
	// DefaultLabel is appended to every created entity. Empty disables it.
	DefaultLabel string `mapstructure:"default_label"`
	// Root is the sentinel entity graph-meta traversals start from.
	Root string `mapstructure:"root"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("graph.default_label", "Memory")
	v.SetDefault("graph.root", "tech:tool:memory_graph")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".mnemo"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("MNEMO")
	v.AutomaticEnv()

	_ = v.BindEnv("neo4j.uri", "MNEMO_NEO4J_URI")
	_ = v.BindEnv("neo4j.username", "MNEMO_NEO4J_USERNAME")
	_ = v.BindEnv("neo4j.password", "MNEMO_NEO4J_PASSWORD")
	_ = v.BindEnv("neo4j.database", "MNEMO_NEO4J_DATABASE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK — use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Neo4j.Database == "" {
		return fmt.Errorf("neo4j.database must not be empty")
	}
	if c.Graph.Root == "" {
		return fmt.Errorf("graph.root must not be empty")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
