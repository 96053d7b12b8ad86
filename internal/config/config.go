package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devhyun/llmstack/internal/logger"
)

// Inference describes the native GPU inference service.
type Inference struct {
	Port           int           `mapstructure:"port"`
	Dir            string        `mapstructure:"dir"`     // service checkout, also the workdir
	Command        string        `mapstructure:"command"` // startup command, relative to Dir
	Env            []string      `mapstructure:"env"`     // extra K=V overrides
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// UI describes the optional containerized chat front-end.
type UI struct {
	Port           int           `mapstructure:"port"`
	ComposeFile    string        `mapstructure:"compose_file"`
	Service        string        `mapstructure:"service"` // compose service name
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// Model holds the default artifact identity and the models directory.
type Model struct {
	Repo     string `mapstructure:"repo"`
	Revision string `mapstructure:"revision"`
	Dir      string `mapstructure:"dir"`
}

// History configures the lifecycle audit sink. Empty DSN disables it.
type History struct {
	DSN string `mapstructure:"dsn"`
}

// Config is the full orchestrator configuration. Every field has a default
// and can be overridden by a TOML file or LLMSTACK_* environment variables
// (e.g. LLMSTACK_INFERENCE_PORT, LLMSTACK_MODEL_REVISION).
type Config struct {
	LogsDir   string        `mapstructure:"logs_dir"`
	Log       logger.Config `mapstructure:"log"`
	Inference Inference     `mapstructure:"inference"`
	UI        UI            `mapstructure:"ui"`
	Model     Model         `mapstructure:"model"`
	History   History       `mapstructure:"history"`
}

// Load reads configuration from the optional TOML file at path, applying
// defaults and environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LLMSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Log.Dir == "" {
		c.Log.Dir = c.LogsDir
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logs_dir", "logs")
	v.SetDefault("inference.port", 5000)
	v.SetDefault("inference.dir", "tabbyapi")
	v.SetDefault("inference.command", "venv/bin/python main.py")
	v.SetDefault("inference.env", []string{})
	v.SetDefault("inference.startup_timeout", 300*time.Second)
	v.SetDefault("inference.poll_interval", 5*time.Second)
	v.SetDefault("ui.port", 3000)
	v.SetDefault("ui.compose_file", "docker-compose.yml")
	v.SetDefault("ui.service", "open-webui")
	v.SetDefault("ui.startup_timeout", 60*time.Second)
	v.SetDefault("ui.poll_interval", 2*time.Second)
	v.SetDefault("model.repo", "turboderp/Llama-3.1-8B-Instruct-exl2")
	v.SetDefault("model.revision", "6_5")
	v.SetDefault("model.dir", "models")
	v.SetDefault("history.dsn", "")
}

// InferenceHealthURL is the readiness endpoint of the inference service.
func (c *Config) InferenceHealthURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", c.Inference.Port)
}

// UIHealthURL is the readiness endpoint of the chat UI container.
func (c *Config) UIHealthURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/health", c.UI.Port)
}
