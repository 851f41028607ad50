package config

import (
	"fmt"
	"os"
	"time"

	"github.com/framewell/renderfarm/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is the farmd configuration file.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	API       APIConfig       `yaml:"api"`
	Audit     AuditConfig     `yaml:"audit"`

	// Clients and Nodes describe the initial fleet registered at startup.
	Clients []ClientConfig `yaml:"clients,omitempty"`
	Nodes   []NodeConfig   `yaml:"nodes,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type SchedulerConfig struct {
	// Interval between scheduling cycles.
	Interval Duration `yaml:"interval"`

	SafetyMarginHours float64 `yaml:"safety_margin_hours"`
	EnablePreemption  bool    `yaml:"enable_preemption"`
}

// Duration accepts time.ParseDuration strings like "15s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type AuditConfig struct {
	// Path to the BoltDB audit database. Empty disables persistence.
	Path string `yaml:"path"`

	// MaxEntries bounds the in-memory audit window.
	MaxEntries int `yaml:"max_entries"`
}

type ClientConfig struct {
	ID                  string `yaml:"id"`
	Name                string `yaml:"name"`
	SLATier             string `yaml:"sla_tier"`
	GuaranteedResources int    `yaml:"guaranteed_resources"`
	MaxResources        int    `yaml:"max_resources"`
}

type NodeConfig struct {
	ID                    string   `yaml:"id"`
	Name                  string   `yaml:"name"`
	CPUCores              int      `yaml:"cpu_cores"`
	MemoryGB              int      `yaml:"memory_gb"`
	GPUModel              string   `yaml:"gpu_model"`
	GPUCount              int      `yaml:"gpu_count"`
	GPUMemoryGB           int      `yaml:"gpu_memory_gb"`
	StorageGB             int      `yaml:"storage_gb"`
	SpecializedFor        []string `yaml:"specialized_for,omitempty"`
	PowerEfficiencyRating float64  `yaml:"power_efficiency_rating"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info", JSON: true},
		Scheduler: SchedulerConfig{Interval: Duration(15 * time.Second), SafetyMarginHours: 2.0},
		API:       APIConfig{ListenAddr: ":8420"},
		Audit:     AuditConfig{MaxEntries: 1000},
	}
}

// Load reads and validates a YAML configuration file. Unset fields fall
// back to the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fleet definitions for internal consistency.
func (c Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.Scheduler.Interval)
	}

	seen := make(map[string]bool)
	for _, client := range c.Clients {
		if client.ID == "" {
			return fmt.Errorf("client %q has no id", client.Name)
		}
		if seen[client.ID] {
			return fmt.Errorf("duplicate client id %q", client.ID)
		}
		seen[client.ID] = true
		if client.GuaranteedResources > client.MaxResources {
			return fmt.Errorf("client %s: guaranteed resources %d exceed max %d",
				client.ID, client.GuaranteedResources, client.MaxResources)
		}
	}

	seen = make(map[string]bool)
	for _, node := range c.Nodes {
		if node.ID == "" {
			return fmt.Errorf("node %q has no id", node.Name)
		}
		if seen[node.ID] {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}
		seen[node.ID] = true
	}
	return nil
}

// ToClient converts the config entry to the domain type.
func (c ClientConfig) ToClient() *types.Client {
	return &types.Client{
		ID:                  c.ID,
		Name:                c.Name,
		SLATier:             c.SLATier,
		GuaranteedResources: c.GuaranteedResources,
		MaxResources:        c.MaxResources,
	}
}

// ToNode converts the config entry to the domain type.
func (n NodeConfig) ToNode() *types.RenderNode {
	return &types.RenderNode{
		ID:   n.ID,
		Name: n.Name,
		Capabilities: types.NodeCapabilities{
			CPUCores:       n.CPUCores,
			MemoryGB:       n.MemoryGB,
			GPUModel:       n.GPUModel,
			GPUCount:       n.GPUCount,
			GPUMemoryGB:    n.GPUMemoryGB,
			StorageGB:      n.StorageGB,
			SpecializedFor: n.SpecializedFor,
		},
		PowerEfficiencyRating: n.PowerEfficiencyRating,
	}
}
