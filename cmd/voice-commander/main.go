package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chaz8081/voice-commander/internal/command"
	"github.com/chaz8081/voice-commander/internal/config"
	"github.com/chaz8081/voice-commander/internal/control"
	"github.com/chaz8081/voice-commander/internal/controller"
	"github.com/chaz8081/voice-commander/internal/hotkey"
	"github.com/chaz8081/voice-commander/internal/inject"
	"github.com/chaz8081/voice-commander/internal/notify"
	"github.com/chaz8081/voice-commander/internal/recognizer"
	"github.com/chaz8081/voice-commander/internal/surface"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voice-commander/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write the default config file and exit")
	var workspaces []string
	flag.Func("workspace", "workspace folder (repeatable; the first one locates the recognizer script)", func(v string) error {
		workspaces = append(workspaces, v)
		return nil
	})
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.WorkspaceFolders = append(workspaces, cfg.WorkspaceFolders...)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	// Focused surface
	var editor *control.Editor
	var focus surface.Focus
	switch cfg.Inject.Method {
	case "editor":
		editor = control.NewEditor()
		focus = editor
	case "stdout":
		focus = surface.NewWriter(os.Stdout)
	default: // "type", "paste"
		focus = surface.NewDesktop(inject.NewInjector(cfg.Inject.Method))
	}

	notifier, err := notify.New(cfg.Notify.Method)
	if err != nil {
		log.Fatalf("notify: %v", err)
	}

	spawner := &recognizer.ExecSpawner{
		Dir: cfg.Recognizer.Dir,
		Env: cfg.Recognizer.Env,
	}

	ctrl := controller.New(controller.Options{
		Interpreter:    cfg.Recognizer.Interpreter,
		ScriptPath:     cfg.ScriptPath(),
		Sentinel:       cfg.Recognizer.Sentinel,
		FlushAfterStop: cfg.Recognizer.FlushAfterStop,
		StopHint:       stopHint(cfg.Hotkey),
	}, spawner, focus, notifier)

	commands := command.NewRegistry()
	if err := commands.Register(command.StartRecording, ctrl.Start); err != nil {
		log.Fatalf("commands: %v", err)
	}
	if err := commands.Register(command.StopRecording, ctrl.Stop); err != nil {
		log.Fatalf("commands: %v", err)
	}
	if err := commands.Register(command.ToggleRecording, ctrl.Toggle); err != nil {
		log.Fatalf("commands: %v", err)
	}

	// Signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("recorder stopped", "error", err)
		}
	}()

	if cfg.Control.Enabled {
		srv := control.NewServer(cfg.Control.Addr, commands, ctrl, editor)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				slog.Error("control endpoint stopped", "error", err)
			}
		}()
	}

	if cfg.Hotkey.Mode != "none" {
		listener := hotkey.NewListener(hotkey.Bindings{
			Mode:  cfg.Hotkey.Mode,
			Start: cfg.Hotkey.StartKeys,
			Stop:  cfg.Hotkey.StopKeys,
			Keys:  cfg.Hotkey.Keys,
		})
		go listener.Start()
		go dispatchHotkeys(ctx, listener.Events(), commands)
	}

	log.Println("Ready! Ctrl+C to quit.")

	<-ctx.Done()
	log.Println("Shutting down...")
	<-ctrlDone
	log.Println("Goodbye!")
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

// dispatchHotkeys turns hotkey events into command executions.
func dispatchHotkeys(ctx context.Context, events <-chan hotkey.Event, commands *command.Registry) {
	for ev := range events {
		name := commandFor(ev.Type)
		if err := commands.Execute(ctx, name); err != nil {
			slog.Error("hotkey command failed", "command", name, "error", err)
		}
	}
	log.Println("Hotkey listener stopped")
}

// commandFor maps a hotkey event to the command it runs.
func commandFor(t hotkey.EventType) string {
	switch t {
	case hotkey.EventStop:
		return command.StopRecording
	case hotkey.EventToggle:
		return command.ToggleRecording
	default:
		return command.StartRecording
	}
}

// stopHint names the key that stops recording, for notifications.
func stopHint(h config.HotkeyConfig) string {
	switch h.Mode {
	case "commands":
		return hotkey.Hint(h.StopKeys)
	case "toggle", "hold":
		return hotkey.Hint(h.Keys)
	default:
		return "the stop command"
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== voice-commander ===")
	fmt.Printf("  Recognizer: %s %s\n", cfg.Recognizer.Interpreter, cfg.ScriptPath())
	switch cfg.Hotkey.Mode {
	case "commands":
		fmt.Printf("  Hotkeys:    start %s, stop %s\n", hotkey.Hint(cfg.Hotkey.StartKeys), hotkey.Hint(cfg.Hotkey.StopKeys))
	case "none":
		fmt.Println("  Hotkeys:    disabled")
	default:
		fmt.Printf("  Hotkeys:    %s (%s mode)\n", hotkey.Hint(cfg.Hotkey.Keys), cfg.Hotkey.Mode)
	}
	fmt.Printf("  Inject:     %s\n", cfg.Inject.Method)
	if cfg.Control.Enabled {
		fmt.Printf("  Control:    http://%s (commands: %s)\n", cfg.Control.Addr, strings.Join([]string{command.StartRecording, command.StopRecording, command.ToggleRecording}, ", "))
	}
	fmt.Printf("  Log:        %s\n", cfg.LogLevel)
	fmt.Println("=======================")
}
