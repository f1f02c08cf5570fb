package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment overrides, e.g. POSAGENT_BACKEND_BASE_URL.
const EnvPrefix = "POSAGENT_"

// DefaultConfigPaths are searched in order; the first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/posagent/config.yaml",
}

// Config covers both binaries; printerd reads only its own section plus
// logging, the agent reads the rest.
type Config struct {
	Backend  Backend  `koanf:"backend"`
	Poller   Poller   `koanf:"poller"`
	Bridge   Bridge   `koanf:"bridge"`
	Printerd Printerd `koanf:"printerd"`
	Session  Session  `koanf:"session"`
	Alert    Alert    `koanf:"alert"`
	Agent    Agent    `koanf:"agent"`
	Logging  Logging  `koanf:"logging"`
}

type Backend struct {
	BaseURL   string        `koanf:"base_url"`
	Timeout   time.Duration `koanf:"timeout"`
	UpdatedBy string        `koanf:"updated_by"`
}

type Poller struct {
	Interval time.Duration `koanf:"interval"`
	PageSize int           `koanf:"page_size"`
}

type Bridge struct {
	URL          string        `koanf:"url"`
	CallTimeout  time.Duration `koanf:"call_timeout"`
	PrintTimeout time.Duration `koanf:"print_timeout"`
}

type Printerd struct {
	Listen          string        `koanf:"listen"`
	PrintersFile    string        `koanf:"printers_file"`
	FallbackPrinter string        `koanf:"fallback_printer"`
	RenderTimeout   time.Duration `koanf:"render_timeout"`
	DefaultWidth    int           `koanf:"default_width"`
	SpoolCommand    string        `koanf:"spool_command"`
	ChromePath      string        `koanf:"chrome_path"`
}

type Session struct {
	Path string `koanf:"path"`
}

type Alert struct {
	Player string `koanf:"player"`
	Sound  string `koanf:"sound"`
}

// Agent holds the posagent-side debug surface (health and metrics).
type Agent struct {
	Listen string `koanf:"listen"`
}

type Logging struct {
	Level   string `koanf:"level"`
	Console bool   `koanf:"console"`
}

func defaults() *Config {
	return &Config{
		Backend: Backend{
			BaseURL:   "",
			Timeout:   10 * time.Second,
			UpdatedBy: "pos-agent",
		},
		Poller: Poller{
			Interval: 5 * time.Second,
			PageSize: 10,
		},
		Bridge: Bridge{
			URL:          "ws://127.0.0.1:9310/ws",
			CallTimeout:  15 * time.Second,
			PrintTimeout: 30 * time.Second,
		},
		Printerd: Printerd{
			Listen:          "127.0.0.1:9310",
			PrintersFile:    "config/printers.json",
			FallbackPrinter: "POS58",
			RenderTimeout:   10 * time.Second,
			DefaultWidth:    576,
			SpoolCommand:    "lp",
		},
		Session: Session{
			Path: "data/session",
		},
		Alert: Alert{
			Player: "paplay",
			Sound:  "assets/audio/buzzer.mp3",
		},
		Agent: Agent{
			Listen: "127.0.0.1:9311",
		},
		Logging: Logging{
			Level:   "info",
			Console: true,
		},
	}
}

// Load builds the config from defaults, an optional YAML file and
// POSAGENT_* environment overrides, in that precedence order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// POSAGENT_BRIDGE_CALL_TIMEOUT -> bridge.call_timeout. Section names
	// are single words, so only the first underscore becomes a dot.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(s, "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants shared by both binaries. Agent-only
// requirements (a backend URL) are enforced where the agent starts up.
func (c *Config) Validate() error {
	if c.Poller.Interval < time.Second {
		return fmt.Errorf("poller.interval must be at least 1s, got %s", c.Poller.Interval)
	}
	if c.Poller.PageSize <= 0 {
		return fmt.Errorf("poller.page_size must be positive, got %d", c.Poller.PageSize)
	}
	if c.Printerd.RenderTimeout <= 0 {
		return fmt.Errorf("printerd.render_timeout must be positive, got %s", c.Printerd.RenderTimeout)
	}
	if c.Printerd.DefaultWidth <= 0 || c.Printerd.DefaultWidth%8 != 0 {
		return fmt.Errorf("printerd.default_width must be a positive multiple of 8, got %d", c.Printerd.DefaultWidth)
	}
	if c.Bridge.URL == "" {
		return fmt.Errorf("bridge.url must not be empty")
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
