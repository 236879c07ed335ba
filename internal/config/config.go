// Package config loads process-wide settings once at startup from an
// optional dotenv file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	// DefaultEnvFile is read from the working directory when present.
	DefaultEnvFile = ".env"

	// EnvFileVar points at an alternative env file.
	EnvFileVar = "ENV_FILE"

	DefaultHistoryKeep = 200
)

type Config struct {
	LogLevel  string
	LogFormat string
	LogFile   string

	// HistoryDB enables the sqlite invocation history when non-empty.
	HistoryDB   string
	HistoryKeep int

	// EngineEnv holds the env file entries, exported to the Embulk process
	// so liquid templates can read them.
	EngineEnv map[string]string

	EnvFileUsed string
}

// Load reads envFile (or $ENV_FILE, or .env) and layers the process
// environment on top. A missing default env file is not an error; a missing
// explicitly named one is.
func Load(envFile string) (*Config, error) {
	explicit := strings.TrimSpace(envFile) != ""
	if !explicit {
		if fromEnv := strings.TrimSpace(os.Getenv(EnvFileVar)); fromEnv != "" {
			envFile = fromEnv
			explicit = true
		} else {
			envFile = DefaultEnvFile
		}
	}

	fileEnv, err := readEnvFile(envFile)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		fileEnv = nil
		envFile = ""
	default:
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("history_db", "")
	v.SetDefault("history_keep", DefaultHistoryKeep)

	// env file beats defaults, process environment beats both
	for k, val := range fileEnv {
		v.SetDefault(strings.ToLower(k), val)
	}
	v.AutomaticEnv()

	cfg := &Config{
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		LogFile:     v.GetString("log_file"),
		HistoryDB:   v.GetString("history_db"),
		HistoryKeep: v.GetInt("history_keep"),
		EngineEnv:   map[string]string(fileEnv),
		EnvFileUsed: envFile,
	}
	if cfg.HistoryKeep <= 0 {
		cfg.HistoryKeep = DefaultHistoryKeep
	}
	return cfg, nil
}

func readEnvFile(path string) (gotenv.Env, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	env, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return env, nil
}
