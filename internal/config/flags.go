package config

import (
	"flag"
	"fmt"
)

// BindFlags registers the shared flags on fs, writing into cfg. Zero flag
// values leave the field unset so the file, env and defaults can fill it.
// It returns a pointer to the -config path.
func BindFlags(fs *flag.FlagSet, cfg *Config) *string {
	path := fs.String("config", "", "YAML or JSON config file")
	fs.StringVar(&cfg.InputDir, "input-dir", "", "input folder (default input_files)")
	fs.StringVar(&cfg.OutputDir, "output", "", "output folder (default output)")
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite database path (default <output>/etl_data.db)")
	fs.BoolVar(&cfg.NoDB, "no-db", false, "disable the run database")
	fs.DurationVar(&cfg.Settle, "settle", 0, "watch: quiet period before a file is processed (default 1s)")
	fs.IntVar(&cfg.Concurrency, "concurrency", 0, "worker concurrency (default 4)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "console or json")
	fs.Int64Var(&cfg.MaxFileBytes, "max-bytes", 0, "largest accepted input file in bytes")
	fs.IntVar(&cfg.Base64MinLen, "base64-min", 0, "shortest run flagged as base64 (default 16)")
	fs.IntVar(&cfg.MaxJSONAttempts, "json-attempts", 0, "cap on JSON trial parses per run (default 10000)")
	fs.BoolVar(&cfg.RunScoped, "run-scoped", false, "write each run into its own output subfolder")
	fs.BoolVar(&cfg.SegmentReport, "segments", false, "also write segments.ndjson")
	return path
}

// Resolve layers env, the optional file and defaults under the flag values,
// then validates.
func Resolve(cfg *Config, path string) error {
	ApplyEnv(cfg)
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		ApplyFile(cfg, fc)
	}
	ApplyDefaults(cfg)
	return cfg.Validate()
}
