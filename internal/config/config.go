package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/uniqueness"
)

const EnvPrefix = "ROWGEN"

type Config struct {
	ScenariosDir  string
	TargetsDir    string
	RunsDBPath    string
	LogLevel      string
	BindAddr      string
	DefaultMode   string
	BatchSize     int
	ExcludedStore string
	SpillDir      string
}

// Load resolves configuration from defaults, an optional config file, a .env
// file in the working directory and ROWGEN_* environment variables, in
// increasing order of precedence.
func Load(configPath string) (*Config, error) {
	// Variables already in the environment win over .env.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read .env")
	}

	v := viper.New()
	v.SetDefault("scenarios_dir", "./scenarios")
	v.SetDefault("targets_dir", "./targets")
	v.SetDefault("runs_db", "./rowgen-runs.sqlite")
	v.SetDefault("log_level", "info")
	v.SetDefault("bind_addr", ":8080")
	v.SetDefault("default_mode", domain.TableModeCreate)
	v.SetDefault("batch_size", 1000)
	v.SetDefault("excluded_store", uniqueness.KindMemory)
	v.SetDefault("spill_dir", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configPath)
		}
	}

	cfg := &Config{
		ScenariosDir:  v.GetString("scenarios_dir"),
		TargetsDir:    v.GetString("targets_dir"),
		RunsDBPath:    v.GetString("runs_db"),
		LogLevel:      strings.ToLower(v.GetString("log_level")),
		BindAddr:      v.GetString("bind_addr"),
		DefaultMode:   v.GetString("default_mode"),
		BatchSize:     v.GetInt("batch_size"),
		ExcludedStore: v.GetString("excluded_store"),
		SpillDir:      v.GetString("spill_dir"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.ErrConfiguration, "log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.DefaultMode {
	case domain.TableModeCreate, domain.TableModeTruncate, domain.TableModeAppend:
	default:
		return errors.Newf(errors.ErrConfiguration, "invalid default_mode: %s", c.DefaultMode)
	}
	if c.BatchSize <= 0 {
		return errors.Newf(errors.ErrConfiguration, "batch_size must be positive, got %d", c.BatchSize)
	}
	switch c.ExcludedStore {
	case uniqueness.KindMemory, uniqueness.KindBolt:
	default:
		return errors.Newf(errors.ErrConfiguration, "excluded_store must be %s or %s, got %q", uniqueness.KindMemory, uniqueness.KindBolt, c.ExcludedStore)
	}
	if c.RunsDBPath == "" {
		return errors.New(errors.ErrConfiguration, "runs_db is required")
	}
	return nil
}
