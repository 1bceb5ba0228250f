// Package config handles configuration loading for the task manager.
// It supports XDG config paths, project-level overrides, and environment
// variables with the VIBEMAN_ prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// Config holds all configuration for the task manager core.
type Config struct {
	// DataDirectory is the root of the entity store on disk.
	DataDirectory string              `mapstructure:"data_directory"`
	Scheduling    SchedulingConfig    `mapstructure:"scheduling"`
	RDD           RDDConfig           `mapstructure:"rdd"`
	Orchestration OrchestrationConfig `mapstructure:"orchestration"`
	Prompts       PromptsConfig       `mapstructure:"prompts"`
	LLM           LLMConfig           `mapstructure:"llm"`
}

// SchedulingConfig holds scheduler settings.
type SchedulingConfig struct {
	// Algorithm selects the scoring strategy.
	Algorithm string `mapstructure:"algorithm"`
	// MaxConcurrentTasks caps batch width.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
	// MaxMemoryMB is the concurrent memory envelope.
	MaxMemoryMB int `mapstructure:"max_memory_mb"`
	// MaxCPUUtilization is the concurrent CPU envelope, in (0,1].
	MaxCPUUtilization float64 `mapstructure:"max_cpu_utilization"`
	// AvailableAgents is the expected agent pool size.
	AvailableAgents int `mapstructure:"available_agents"`
	// BatchSize caps tasks per batch before resource packing.
	BatchSize int `mapstructure:"batch_size"`
	// SchedulingInterval is the orchestrator scheduling tick.
	SchedulingInterval time.Duration `mapstructure:"scheduling_interval"`
	// PriorityWeights maps priority names to score weights.
	PriorityWeights PriorityWeights `mapstructure:"priority_weights"`
	// ScoreWeights are the hybrid_optimal factor weights.
	ScoreWeights ScoreWeights `mapstructure:"score_weights"`
	// ResourceProfiles maps task types to resource envelopes.
	ResourceProfiles map[string]ResourceProfile `mapstructure:"resource_profiles"`
}

// PriorityWeights maps priority levels to numeric weights.
type PriorityWeights struct {
	Low      float64 `mapstructure:"low"`
	Medium   float64 `mapstructure:"medium"`
	High     float64 `mapstructure:"high"`
	Critical float64 `mapstructure:"critical"`
}

// For returns the weight for a priority level.
func (w PriorityWeights) For(p models.Priority) float64 {
	switch p {
	case models.PriorityLow:
		return w.Low
	case models.PriorityMedium:
		return w.Medium
	case models.PriorityHigh:
		return w.High
	case models.PriorityCritical:
		return w.Critical
	default:
		return w.Medium
	}
}

// ScoreWeights are the per-factor weights of the hybrid_optimal algorithm.
// They should sum to 1.0.
type ScoreWeights struct {
	Dependencies      float64 `mapstructure:"dependencies"`
	Deadline          float64 `mapstructure:"deadline"`
	SystemLoad        float64 `mapstructure:"system_load"`
	Complexity        float64 `mapstructure:"complexity"`
	BusinessImpact    float64 `mapstructure:"business_impact"`
	AgentAvailability float64 `mapstructure:"agent_availability"`
}

// ResourceProfile is the per-task-type resource envelope.
type ResourceProfile struct {
	MemoryMB   int     `mapstructure:"memory_mb"`
	CPUWeight  float64 `mapstructure:"cpu_weight"`
	AgentCount int     `mapstructure:"agent_count"`
}

// RDDConfig holds recursive decomposition settings.
type RDDConfig struct {
	// MaxDepth bounds decomposition recursion.
	MaxDepth int `mapstructure:"max_depth"`
	// MaxSubTasks bounds fan-out per split.
	MaxSubTasks int `mapstructure:"max_sub_tasks"`
	// MinConfidence is the atomicity confidence threshold.
	MinConfidence float64 `mapstructure:"min_confidence"`
}

// OrchestrationConfig holds orchestration engine settings.
type OrchestrationConfig struct {
	// HeartbeatInterval is the agent heartbeat check tick.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// HeartbeatTimeout marks silent agents offline.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	// WatchdogInterval is the execution watchdog tick.
	WatchdogInterval time.Duration `mapstructure:"watchdog_interval"`
	// DefaultTimeout is the per-execution progress-silence budget.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	// CleanupInterval is the stale-workflow garbage collection tick.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// MetricsInterval is the metrics snapshot tick.
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	// Recovery holds retry settings.
	Recovery RecoveryConfig `mapstructure:"recovery"`
}

// RecoveryConfig holds automatic retry settings.
type RecoveryConfig struct {
	// AutoRetry enables reassignment of timed-out or orphaned tasks.
	AutoRetry bool `mapstructure:"auto_retry"`
	// MaxRetries caps reassignment attempts per task.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the wait before a retried assignment re-enters the pool.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// PromptsConfig holds prompt service settings.
type PromptsConfig struct {
	// Directory is where prompt YAML files live.
	Directory string `mapstructure:"directory"`
}

// LLMConfig holds language model provider settings.
type LLMConfig struct {
	// APIKey is the Anthropic API key. If empty, ANTHROPIC_API_KEY is used.
	APIKey string `mapstructure:"api_key"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes calls through AWS Bedrock instead of direct API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// Load loads configuration with precedence (highest to lowest):
// 1. Environment variables (VIBEMAN_*)
// 2. Project config (.vibeman.yaml in the working directory or a parent)
// 3. User config (~/.config/vibeman/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if project := findProjectConfig(); project != "" {
		pv := viper.New()
		pv.SetConfigFile(project)
		if err := pv.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(pv.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VIBEMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("llm.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in default configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_directory", defaultDataDir())

	v.SetDefault("scheduling.algorithm", string(models.AlgorithmHybridOptimal))
	v.SetDefault("scheduling.max_concurrent_tasks", 8)
	v.SetDefault("scheduling.max_memory_mb", 4096)
	v.SetDefault("scheduling.max_cpu_utilization", 0.8)
	v.SetDefault("scheduling.available_agents", 4)
	v.SetDefault("scheduling.batch_size", 16)
	v.SetDefault("scheduling.scheduling_interval", 5*time.Second)
	v.SetDefault("scheduling.priority_weights.low", 0.25)
	v.SetDefault("scheduling.priority_weights.medium", 0.5)
	v.SetDefault("scheduling.priority_weights.high", 0.75)
	v.SetDefault("scheduling.priority_weights.critical", 1.0)
	v.SetDefault("scheduling.score_weights.dependencies", 0.35)
	v.SetDefault("scheduling.score_weights.deadline", 0.25)
	v.SetDefault("scheduling.score_weights.system_load", 0.20)
	v.SetDefault("scheduling.score_weights.complexity", 0.10)
	v.SetDefault("scheduling.score_weights.business_impact", 0.05)
	v.SetDefault("scheduling.score_weights.agent_availability", 0.05)

	v.SetDefault("rdd.max_depth", 3)
	v.SetDefault("rdd.max_sub_tasks", 5)
	v.SetDefault("rdd.min_confidence", 0.7)

	v.SetDefault("orchestration.heartbeat_interval", 30*time.Second)
	v.SetDefault("orchestration.heartbeat_timeout", 2*time.Minute)
	v.SetDefault("orchestration.watchdog_interval", 10*time.Second)
	v.SetDefault("orchestration.default_timeout", 5*time.Minute)
	v.SetDefault("orchestration.cleanup_interval", 1*time.Hour)
	v.SetDefault("orchestration.metrics_interval", 1*time.Minute)
	v.SetDefault("orchestration.recovery.auto_retry", true)
	v.SetDefault("orchestration.recovery.max_retries", 3)
	v.SetDefault("orchestration.recovery.retry_delay", 30*time.Second)

	v.SetDefault("prompts.directory", filepath.Join(defaultDataDir(), "prompts"))
}

// userConfigDir returns the XDG config directory for vibeman.
func userConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "vibeman")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vibeman")
}

// defaultDataDir returns the XDG data directory for vibeman.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "vibeman")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "vibeman")
}

// findProjectConfig walks up from the working directory looking for
// .vibeman.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".vibeman.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
