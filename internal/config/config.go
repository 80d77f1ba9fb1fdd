// Package config resolves run settings from flags, environment and an
// optional YAML or JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type Config struct {
	InputDir  string
	OutputDir string
	// DBPath is the SQLite file; empty with NoDB set disables persistence.
	DBPath string
	NoDB   bool

	Settle      time.Duration
	Concurrency int

	LogLevel  string
	LogFormat string

	MaxFileBytes    int64
	Base64MinLen    int
	MaxJSONAttempts int

	RunScoped     bool
	SegmentReport bool

	Addr           string
	MaxUploadBytes int64
	FetchTimeout   time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		InputDir:        "input_files",
		OutputDir:       "output",
		Settle:          time.Second,
		Concurrency:     4,
		LogLevel:        "info",
		LogFormat:       "console",
		MaxFileBytes:    50 << 20,
		Base64MinLen:    16,
		MaxJSONAttempts: 10000,
		Addr:            ":8080",
		MaxUploadBytes:  16 << 20,
		FetchTimeout:    20 * time.Second,
	}
}

// FileConfig is the on-disk configuration schema.
type FileConfig struct {
	Input  string `yaml:"input" json:"input"`
	Output string `yaml:"output" json:"output"`

	DB struct {
		Path    string `yaml:"path" json:"path"`
		Disable bool   `yaml:"disable" json:"disable"`
	} `yaml:"db" json:"db"`

	Watch struct {
		Settle      time.Duration `yaml:"settle" json:"settle"`
		Concurrency int           `yaml:"concurrency" json:"concurrency"`
	} `yaml:"watch" json:"watch"`

	Log struct {
		Level  string `yaml:"level" json:"level"`
		Format string `yaml:"format" json:"format"`
	} `yaml:"log" json:"log"`

	Limits struct {
		MaxFileBytes    int64 `yaml:"maxFileBytes" json:"maxFileBytes"`
		Base64MinLen    int   `yaml:"base64MinLen" json:"base64MinLen"`
		MaxJSONAttempts int   `yaml:"maxJSONAttempts" json:"maxJSONAttempts"`
	} `yaml:"limits" json:"limits"`

	Outputs struct {
		RunScoped     bool `yaml:"runScoped" json:"runScoped"`
		SegmentReport bool `yaml:"segmentReport" json:"segmentReport"`
	} `yaml:"outputs" json:"outputs"`

	Server struct {
		Addr           string        `yaml:"addr" json:"addr"`
		MaxUploadBytes int64         `yaml:"maxUploadBytes" json:"maxUploadBytes"`
		FetchTimeout   time.Duration `yaml:"fetchTimeout" json:"fetchTimeout"`
	} `yaml:"server" json:"server"`
}

// LoadFile reads YAML or JSON into FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFile fills unset fields of cfg from fc.
func ApplyFile(cfg *Config, fc FileConfig) {
	setString(&cfg.InputDir, fc.Input)
	setString(&cfg.OutputDir, fc.Output)
	setString(&cfg.DBPath, fc.DB.Path)
	cfg.NoDB = cfg.NoDB || fc.DB.Disable
	if cfg.Settle == 0 {
		cfg.Settle = fc.Watch.Settle
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = fc.Watch.Concurrency
	}
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = fc.Limits.MaxFileBytes
	}
	if cfg.Base64MinLen == 0 {
		cfg.Base64MinLen = fc.Limits.Base64MinLen
	}
	if cfg.MaxJSONAttempts == 0 {
		cfg.MaxJSONAttempts = fc.Limits.MaxJSONAttempts
	}
	cfg.RunScoped = cfg.RunScoped || fc.Outputs.RunScoped
	cfg.SegmentReport = cfg.SegmentReport || fc.Outputs.SegmentReport
	setString(&cfg.Addr, fc.Server.Addr)
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = fc.Server.MaxUploadBytes
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = fc.Server.FetchTimeout
	}
}

// ApplyEnv populates unset fields of cfg from ETL_* environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnv(cfg *Config) {
	setString(&cfg.InputDir, os.Getenv("ETL_INPUT_DIR"))
	setString(&cfg.OutputDir, os.Getenv("ETL_OUTPUT_DIR"))
	setString(&cfg.DBPath, os.Getenv("ETL_DB_PATH"))
	setString(&cfg.LogLevel, os.Getenv("ETL_LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("ETL_LOG_FORMAT"))
	setString(&cfg.Addr, os.Getenv("ETL_ADDR"))
	cfg.NoDB = cfg.NoDB || envBool("ETL_NO_DB")
	cfg.RunScoped = cfg.RunScoped || envBool("ETL_RUN_SCOPED")
	cfg.SegmentReport = cfg.SegmentReport || envBool("ETL_SEGMENT_REPORT")

	if cfg.Concurrency == 0 {
		cfg.Concurrency = envInt("ETL_CONCURRENCY")
	}
	if cfg.Base64MinLen == 0 {
		cfg.Base64MinLen = envInt("ETL_BASE64_MIN_LEN")
	}
	if cfg.MaxJSONAttempts == 0 {
		cfg.MaxJSONAttempts = envInt("ETL_MAX_JSON_ATTEMPTS")
	}
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = int64(envInt("ETL_MAX_FILE_BYTES"))
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = int64(envInt("ETL_MAX_UPLOAD_BYTES"))
	}
	if cfg.Settle == 0 {
		cfg.Settle = envDuration("ETL_WATCH_SETTLE")
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = envDuration("ETL_FETCH_TIMEOUT")
	}
}

// ApplyDefaults fills whatever is still unset from Default. The database
// defaults to etl_data.db inside the output directory.
func ApplyDefaults(cfg *Config) {
	d := Default()
	setString(&cfg.InputDir, d.InputDir)
	setString(&cfg.OutputDir, d.OutputDir)
	setString(&cfg.LogLevel, d.LogLevel)
	setString(&cfg.LogFormat, d.LogFormat)
	setString(&cfg.Addr, d.Addr)
	if cfg.DBPath == "" && !cfg.NoDB {
		cfg.DBPath = filepath.Join(cfg.OutputDir, "etl_data.db")
	}
	if cfg.Settle == 0 {
		cfg.Settle = d.Settle
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = d.Concurrency
	}
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = d.MaxFileBytes
	}
	if cfg.Base64MinLen == 0 {
		cfg.Base64MinLen = d.Base64MinLen
	}
	if cfg.MaxJSONAttempts == 0 {
		cfg.MaxJSONAttempts = d.MaxJSONAttempts
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = d.FetchTimeout
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.Settle < 0 {
		errs = append(errs, fmt.Errorf("settle must not be negative, got %s", c.Settle))
	}
	if c.Base64MinLen < 4 {
		errs = append(errs, fmt.Errorf("base64 min length must be >= 4, got %d", c.Base64MinLen))
	}
	if c.MaxJSONAttempts < 1 {
		errs = append(errs, fmt.Errorf("json attempt cap must be >= 1, got %d", c.MaxJSONAttempts))
	}
	if c.MaxFileBytes < 0 || c.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("byte limits must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = strings.TrimSpace(v)
	}
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

func envInt(key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func envDuration(key string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d < 0 {
		return 0
	}
	return d
}
