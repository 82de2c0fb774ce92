// Package main provides the guardian binary entry point.
// Guardian is a policy-gated change custodian: it turns observational
// signals into care-case triage records and, where policy allows, into
// reviewable patch proposal branches.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/guardian/config"
	"github.com/c360studio/guardian/schema"
	"github.com/c360studio/guardian/store"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "guardian"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration and shared collaborators for one
// command invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	validator *schema.Validator
	cases     *store.Store
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		repoPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Policy-gated change custodian",
		Long: `Guardian validates observational signals, synthesizes care-case
triage records, and proposes remediation changes as reviewable branches.

It provides:
- Signal intake: schema validation and care-case synthesis
- Patch proposal: branches and change requests for eligible cases
- PR validation: structural checks on incoming guardian branches`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&repoPath, "repo", "", "Repository path to operate on")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	setup := func() (*app, error) {
		return newApp(configPath, repoPath, logLevel)
	}

	cmd.AddCommand(intakeCmd(setup))
	cmd.AddCommand(proposeCmd(setup))
	cmd.AddCommand(validatePRCmd(setup))
	cmd.AddCommand(issueCmd(setup))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// newApp resolves configuration and builds the shared collaborators. Flag
// values override file values; file values override defaults.
func newApp(configPath, repoPath, logLevel string) (*app, error) {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		loaded, err := config.NewLoader(logger).Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if repoPath != "" {
		cfg.Repo.Path = repoPath
	}
	if cfg.Repo.Path == "" {
		cfg.Repo.Path = "."
	}
	absRepo, err := filepath.Abs(cfg.Repo.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve repo path: %w", err)
	}
	cfg.Repo.Path = absRepo

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	validator, err := schema.NewValidatorFromFiles(cfg.Schemas.SignalPath, cfg.Schemas.CareCasePath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		validator: validator,
		cases:     store.New(filepath.Join(cfg.Repo.Path, cfg.Cases.Dir)),
	}, nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
