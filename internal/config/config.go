// Package config centralizes GAS orchestrator configuration: server
// binding, workspace paths, polling/tick timing, bounded-resource limits,
// succession trigger weights, and knowledge-store caps. Defaults are
// constructed in code and optionally overlaid by a workspace-local YAML
// file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP/WebSocket surface (C11).
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// TimingConfig controls polling and tick intervals.
type TimingConfig struct {
	IdleThreshold       time.Duration `yaml:"idle_threshold"`
	CompletionThreshold time.Duration `yaml:"completion_threshold"`
	WebSocketPing       time.Duration `yaml:"websocket_ping"`
	FileWatchInterval   time.Duration `yaml:"file_watch_interval"`
	SingleModeTick      time.Duration `yaml:"single_mode_tick"`
	SwarmModeTick       time.Duration `yaml:"swarm_mode_tick"`
}

// LimitsConfig bounds resource usage across the pipeline.
type LimitsConfig struct {
	ParseCacheSize     int `yaml:"parse_cache_size"`
	LiveEventsGlobal   int `yaml:"live_events_global"`
	LiveEventsPerAgent int `yaml:"live_events_per_agent"`
	ContentTruncation  int `yaml:"content_truncation"`
	TrackedFiles       int `yaml:"tracked_files"`
}

// TriggerConfig holds the succession trigger's weights and thresholds (C5,
// Weights are expected to sum to 1.0 but this is not enforced
// so experimentation is possible.
type TriggerConfig struct {
	WeightInteractions float64 `yaml:"weight_interactions"`
	WeightConfidence   float64 `yaml:"weight_confidence"`
	WeightErrors       float64 `yaml:"weight_errors"`
	WeightStall        float64 `yaml:"weight_stall"`

	InteractionLimit float64       `yaml:"interaction_limit"`
	ConfidenceMin    float64       `yaml:"confidence_min"`
	ErrorRateMax     float64       `yaml:"error_rate_max"`
	StallThreshold   time.Duration `yaml:"stall_threshold"`

	ImmediateThreshold float64 `yaml:"immediate_threshold"`
	SoonThreshold      float64 `yaml:"soon_threshold"`
}

// KnowledgeConfig holds caps and defaults for the knowledge store (C4).
type KnowledgeConfig struct {
	SuccessCap         int     `yaml:"success_cap"`
	AntiCap            int     `yaml:"anti_cap"`
	DomainCap          int     `yaml:"domain_cap"`
	DefaultConfidence  float64 `yaml:"default_confidence"`
	DecayAmount        float64 `yaml:"decay_amount"`
	DecayFloor         float64 `yaml:"decay_floor"`
	PromotionThreshold int     `yaml:"promotion_threshold"`
	PromotionBump      float64 `yaml:"promotion_bump"`
}

// WorkerConfig controls how the external worker process is launched (C7
// spawn step 5). Command and every entry of Args are templates;
// {{workspace}}, {{generation}}, {{status}}, {{transfer}}, {{output}},
// {{prompt}} and {{gen_number}} are substituted with the paths, prompt text
// and generation number spawn() computes for the new generation.
type WorkerConfig struct {
	Command        string        `yaml:"command"`
	Args           []string      `yaml:"args"`
	Timeout        time.Duration `yaml:"timeout"`
	PromptTemplate string        `yaml:"prompt_template"` // empty uses prompt.DefaultTemplate
}

// BudgetConfig bounds the worker cost this workspace is allowed to spend,
// tracked from the token usage its workers' own NDJSON streams report.
// MaxCostUSD <= 0 means unlimited; cost is tracked but never enforced.
type BudgetConfig struct {
	MaxCostUSD float64 `yaml:"max_cost_usd"`
}

// Config is the full set of recognized configuration inputs.
type Config struct {
	Server            ServerConfig    `yaml:"server"`
	WorkspaceRoot     string          `yaml:"workspace_root"`
	Timing            TimingConfig    `yaml:"timing"`
	Limits            LimitsConfig    `yaml:"limits"`
	Trigger           TriggerConfig   `yaml:"trigger"`
	Knowledge         KnowledgeConfig `yaml:"knowledge"`
	Worker            WorkerConfig    `yaml:"worker"`
	Budget            BudgetConfig    `yaml:"budget"`
	CompletionMarkers []string        `yaml:"completion_markers"`
	LogLevel          string          `yaml:"log_level"`
	LogDir            string          `yaml:"log_dir"`
}

// DefaultConfig returns a Config populated with the defaults named
// throughout the orchestrator.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		WorkspaceRoot: ".",
		Timing: TimingConfig{
			IdleThreshold:       60 * time.Second,
			CompletionThreshold: 120 * time.Second,
			WebSocketPing:       30 * time.Second,
			FileWatchInterval:   500 * time.Millisecond,
			SingleModeTick:      30 * time.Second,
			SwarmModeTick:       5 * time.Second,
		},
		Limits: LimitsConfig{
			ParseCacheSize:     50,
			LiveEventsGlobal:   50,
			LiveEventsPerAgent: 50,
			ContentTruncation:  300,
			TrackedFiles:       100,
		},
		Trigger: TriggerConfig{
			WeightInteractions: 0.25,
			WeightConfidence:   0.30,
			WeightErrors:       0.25,
			WeightStall:        0.20,
			InteractionLimit:   150,
			ConfidenceMin:      0.70,
			ErrorRateMax:       0.15,
			StallThreshold:     10 * time.Minute,
			ImmediateThreshold: 0.70,
			SoonThreshold:      0.50,
		},
		Knowledge: KnowledgeConfig{
			SuccessCap:         50,
			AntiCap:            25,
			DomainCap:          100,
			DefaultConfidence:  0.75,
			DecayAmount:        0.10,
			DecayFloor:         0.10,
			PromotionThreshold: 3,
			PromotionBump:      0.05,
		},
		Worker: WorkerConfig{
			Command: "claude",
			Args: []string{
				"-p", "{{prompt}}",
				"--output-format", "json",
				"--permission-mode", "bypassPermissions",
			},
			Timeout: 30 * time.Minute,
		},
		Budget: BudgetConfig{
			MaxCostUSD: 0,
		},
		CompletionMarkers: []string{
			"task completed",
			"evolution complete",
			`status":"completed"`,
		},
		LogLevel: "info",
		LogDir:   ".gasctl/logs",
	}
}

// Load overlays a YAML config file on top of DefaultConfig. A missing file
// is not an error; it simply means defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}
