// Package config resolves apptracker settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// DefaultLogCommand streams ActivityManager at verbose level and
// AndroidRuntime errors, silencing every other tag.
const DefaultLogCommand = "logcat -v brief ActivityManager:V AndroidRuntime:E *:S"

// Config holds the resolved settings.
type Config struct {
	Dir          string
	DBPath       string
	LogCommand   []string
	WakeFile     string
	SummaryFile  string
	SummaryLimit int
	RestartDelay time.Duration
}

// Dir returns the apptracker data directory. APPTRACKER_DIR wins;
// otherwise ~/.apptracker.
func Dir() (string, error) {
	if d := strings.TrimSpace(os.Getenv("APPTRACKER_DIR")); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".apptracker"), nil
}

// Load reads APPTRACKER_* variables, filling defaults relative to Dir.
// The data directory is created if missing.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cmdline, err := shlex.Split(get("LOG_COMMAND", DefaultLogCommand))
	if err != nil {
		return nil, fmt.Errorf("invalid APPTRACKER_LOG_COMMAND: %w", err)
	}
	if len(cmdline) == 0 {
		return nil, fmt.Errorf("APPTRACKER_LOG_COMMAND is empty")
	}

	limit, err := strconv.Atoi(get("SUMMARY_LIMIT", "10"))
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("invalid APPTRACKER_SUMMARY_LIMIT: must be a positive integer")
	}

	delay, err := time.ParseDuration(get("RESTART_DELAY", "5s"))
	if err != nil || delay < 0 {
		return nil, fmt.Errorf("invalid APPTRACKER_RESTART_DELAY: %q", get("RESTART_DELAY", ""))
	}

	return &Config{
		Dir:          dir,
		DBPath:       get("DB", filepath.Join(dir, "apptracker.db")),
		LogCommand:   cmdline,
		WakeFile:     get("WAKE_FILE", filepath.Join(dir, "wake")),
		SummaryFile:  get("SUMMARY_FILE", filepath.Join(dir, "summary.txt")),
		SummaryLimit: limit,
		RestartDelay: delay,
	}, nil
}

// PIDFile returns the default daemon PID file path.
func (c *Config) PIDFile() string {
	return filepath.Join(c.Dir, "watch.pid")
}

// LogFile returns the default daemon log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.Dir, "watch.log")
}

func get(key, def string) string {
	v := strings.TrimSpace(os.Getenv("APPTRACKER_" + key))
	if v == "" {
		return def
	}
	return v
}
