package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmrzaf/rowgen/internal/config"
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/logging"
)

var (
	configPath   string
	scenariosDir string
	targetsDir   string
	runsDBPath   string
	logLevel     string

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rowgen",
		Short:         "Synthetic test data generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("scenarios-dir") {
				scenariosDir = cfg.ScenariosDir
			}
			if !flags.Changed("targets-dir") {
				targetsDir = cfg.TargetsDir
			}
			if !flags.Changed("runs-db") {
				runsDBPath = cfg.RunsDBPath
			}
			if !flags.Changed("log-level") {
				logLevel = cfg.LogLevel
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&scenariosDir, "scenarios-dir", "", "Scenarios directory")
	rootCmd.PersistentFlags().StringVar(&targetsDir, "targets-dir", "", "Targets directory")
	rootCmd.PersistentFlags().StringVar(&runsDBPath, "runs-db", "", "Runs database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level")

	rootCmd.AddCommand(scenarioCmd(), targetCmd(), providerCmd(), generateCmd(), runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(logLevel, os.Stderr)
}

func looksLikePath(arg string) bool {
	return strings.ContainsRune(arg, os.PathSeparator) ||
		strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml") || strings.HasSuffix(arg, ".json")
}

// loadScenario accepts a repository id or name, or a file path.
func loadScenario(arg string) (*domain.Scenario, error) {
	if looksLikePath(arg) {
		return scenarios.Load(arg)
	}
	return scenarios.NewFileRepository(scenariosDir).Get(arg)
}

func loadTarget(arg string) (*domain.TargetConfig, error) {
	repo := targets.NewFileRepository(targetsDir)
	if looksLikePath(arg) {
		return repo.GetByPath(arg)
	}
	return repo.Get(arg)
}

// parseCounts reads repeated entity=n flags.
func parseCounts(values []string) (map[string]int64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(values))
	for _, v := range values {
		name, raw, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid count %q, want entity=n", v)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid count for %s: %q", name, raw)
		}
		out[name] = n
	}
	return out, nil
}

// parseScales reads repeated entity=factor flags.
func parseScales(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(values))
	for _, v := range values {
		name, raw, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid scale %q, want entity=factor", v)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid scale for %s: %q", name, raw)
		}
		out[name] = f
	}
	return out, nil
}
