package config

import (
	"strings"
	"testing"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Password: "secret",
			Database: "neo4j",
		},
		Graph: GraphConfig{
			DefaultLabel: "Memory",
			Root:         "tech:tool:memory_graph",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validCfg().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_EmptyURI(t *testing.T) {
	cfg := validCfg()
	cfg.Neo4j.URI = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty neo4j.uri")
	}
	if !strings.Contains(err.Error(), "neo4j.uri") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyDatabase(t *testing.T) {
	cfg := validCfg()
	cfg.Neo4j.Database = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty neo4j.database")
	}
	if !strings.Contains(err.Error(), "neo4j.database") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyGraphRoot(t *testing.T) {
	cfg := validCfg()
	cfg.Graph.Root = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty graph.root")
	}
	if !strings.Contains(err.Error(), "graph.root") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_EmptyDefaultLabelIsAllowed(t *testing.T) {
	cfg := validCfg()
	cfg.Graph.DefaultLabel = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty default label should disable the feature, not fail: %v", err)
	}
}

func TestNeo4jConfig_StringMasksPassword(t *testing.T) {
	c := validCfg().Neo4j
	s := c.String()
	if strings.Contains(s, "secret") {
		t.Fatalf("password leaked in: %s", s)
	}
	if !strings.Contains(s, "***") {
		t.Fatalf("expected masked password in: %s", s)
	}
}

func TestLoad_DefaultsWithoutConfigFile(t *testing.T) {
	t.Setenv("MNEMO_NEO4J_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults: %v", err)
	}
	if cfg.Neo4j.URI == "" {
		t.Fatal("expected default neo4j.uri")
	}
	if cfg.Graph.Root != "tech:tool:memory_graph" {
		t.Fatalf("unexpected default graph root: %s", cfg.Graph.Root)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MNEMO_NEO4J_URI", "bolt://example.com:7687")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with env override: %v", err)
	}
	if cfg.Neo4j.URI != "bolt://example.com:7687" {
		t.Fatalf("env override not applied, got %s", cfg.Neo4j.URI)
	}
}
