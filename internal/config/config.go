package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel is the startup banner printed by the recognizer script. It is
// never inserted into the focused surface.
const Sentinel = ">>> Recording started. Press F9 to stop."

// Config holds all application configuration.
type Config struct {
	WorkspaceFolders []string         `yaml:"workspace_folders"`
	Recognizer       RecognizerConfig `yaml:"recognizer"`
	Hotkey           HotkeyConfig     `yaml:"hotkey"`
	Inject           InjectConfig     `yaml:"inject"`
	Notify           NotifyConfig     `yaml:"notify"`
	Control          ControlConfig    `yaml:"control"`
	LogLevel         string           `yaml:"log_level"`
}

// RecognizerConfig describes how the external speech-to-text process is launched.
type RecognizerConfig struct {
	Interpreter string `yaml:"interpreter"`
	// Script is resolved against the first workspace folder unless absolute.
	Script   string            `yaml:"script"`
	Sentinel string            `yaml:"sentinel"`
	Dir      string            `yaml:"dir"`
	Env      map[string]string `yaml:"env"`
	// FlushAfterStop keeps inserting output that arrives after a stop.
	FlushAfterStop bool `yaml:"flush_after_stop"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Mode      string   `yaml:"mode"` // "commands", "toggle" or "hold"
	StartKeys []string `yaml:"start_keys"`
	StopKeys  []string `yaml:"stop_keys"`
	Keys      []string `yaml:"keys"` // toggle and hold modes
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "type", "paste", "editor" or "stdout"
}

// NotifyConfig selects how user-facing notifications are delivered.
type NotifyConfig struct {
	Method string `yaml:"method"` // "desktop", "log" or "none"
}

// ControlConfig configures the local HTTP command endpoint.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "voice-commander")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Recognizer: RecognizerConfig{
			Interpreter:    "python3",
			Script:         filepath.Join("VoiceCommander", "portable_commander.py"),
			Sentinel:       Sentinel,
			FlushAfterStop: true,
		},
		Hotkey: HotkeyConfig{
			Mode:      "commands",
			StartKeys: []string{"f8"},
			StopKeys:  []string{"f9"},
			Keys:      []string{"ctrl", "shift", "r"},
		},
		Inject: InjectConfig{
			Method: "type",
		},
		Notify: NotifyConfig{
			Method: "desktop",
		},
		Control: ControlConfig{
			Enabled: true,
			Addr:    "127.0.0.1:7717",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for i, dir := range cfg.WorkspaceFolders {
		cfg.WorkspaceFolders[i] = expandTilde(dir)
	}
	cfg.Recognizer.Script = expandTilde(cfg.Recognizer.Script)
	cfg.Recognizer.Dir = expandTilde(cfg.Recognizer.Dir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Recognizer.Interpreter == "" {
		return fmt.Errorf("recognizer.interpreter must not be empty")
	}

	if c.Recognizer.Script == "" {
		return fmt.Errorf("recognizer.script must not be empty")
	}

	switch c.Hotkey.Mode {
	case "commands":
		if len(c.Hotkey.StartKeys) == 0 || len(c.Hotkey.StopKeys) == 0 {
			return fmt.Errorf("hotkey.start_keys and hotkey.stop_keys must not be empty in commands mode")
		}
	case "toggle", "hold":
		if len(c.Hotkey.Keys) == 0 {
			return fmt.Errorf("hotkey.keys must not be empty in %s mode", c.Hotkey.Mode)
		}
	case "none":
	default:
		return fmt.Errorf("hotkey.mode must be \"commands\", \"toggle\", \"hold\" or \"none\", got %q", c.Hotkey.Mode)
	}

	switch c.Inject.Method {
	case "type", "paste", "stdout":
	case "editor":
		if !c.Control.Enabled {
			return fmt.Errorf("inject.method \"editor\" requires control.enabled")
		}
	default:
		return fmt.Errorf("inject.method must be \"type\", \"paste\", \"editor\" or \"stdout\", got %q", c.Inject.Method)
	}

	switch c.Notify.Method {
	case "desktop", "log", "none":
	default:
		return fmt.Errorf("notify.method must be \"desktop\", \"log\" or \"none\", got %q", c.Notify.Method)
	}

	if c.Control.Enabled && c.Control.Addr == "" {
		return fmt.Errorf("control.addr must not be empty when control is enabled")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ScriptPath resolves the recognizer script against the first workspace
// folder. With no workspace folder the script path stays relative.
func (c *Config) ScriptPath() string {
	if filepath.IsAbs(c.Recognizer.Script) {
		return c.Recognizer.Script
	}
	base := ""
	if len(c.WorkspaceFolders) > 0 {
		base = c.WorkspaceFolders[0]
	}
	return filepath.Join(base, c.Recognizer.Script)
}

// ParseLogLevel maps a config log level to a slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# voice-commander configuration
# Generated on first run. Edit freely; missing keys fall back to defaults.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the written path, or "" if a file was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
