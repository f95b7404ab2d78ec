package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScheduleConfig controls the broadcast schedule CSV source.
type ScheduleConfig struct {
	// CSVURL is the Google Sheets share/edit/export link for the schedule
	// sheet. Empty means the built-in default document.
	CSVURL string `yaml:"csv_url" json:"csv_url"`

	// RevalidateSeconds is the read-through cache lifetime for the fetched
	// CSV body. Zero disables caching (every request hits the sheet).
	RevalidateSeconds int `yaml:"revalidate_seconds" json:"revalidate_seconds"`
}

// YouTubeConfig controls the video listing collaborator.
type YouTubeConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`

	// Handles are the channel handles (without @) to list uploads for.
	Handles []string `yaml:"handles" json:"handles"`

	MaxResults int `yaml:"max_results" json:"max_results"`
}

// ChzzkConfig controls the live-status collaborator.
type ChzzkConfig struct {
	ChannelID string `yaml:"channel_id" json:"channel_id"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the JSON API.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "*/10 * * * *")
	// used to warm the schedule cache in the background.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	YouTube  YouTubeConfig  `yaml:"youtube" json:"youtube"`
	Chzzk    ChzzkConfig    `yaml:"chzzk" json:"chzzk"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "*/10 * * * *",
		Schedule: ScheduleConfig{
			CSVURL:            "",
			RevalidateSeconds: 600,
		},
		YouTube: YouTubeConfig{
			APIKey:     "",
			Handles:    []string{"moing", "fullmoing"},
			MaxResults: 5,
		},
		Chzzk: ChzzkConfig{
			ChannelID: "1d333ff175b4db5bd06f87a88579ec1e",
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/10 * * * *"
	}
	if c.Schedule.RevalidateSeconds < 0 {
		c.Schedule.RevalidateSeconds = 0
	}
	if c.YouTube.Handles == nil {
		c.YouTube.Handles = []string{"moing", "fullmoing"}
	}
	if c.YouTube.MaxResults <= 0 {
		c.YouTube.MaxResults = 5
	}
	if c.Chzzk.ChannelID == "" {
		c.Chzzk.ChannelID = "1d333ff175b4db5bd06f87a88579ec1e"
	}
}

// ApplyEnv layers MOINGHUB_* environment variables over the loaded config.
// A .env file in the working directory is honored first (never overriding
// variables already present in the environment).
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv("MOINGHUB_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("MOINGHUB_SCHEDULE_CSV_URL")); v != "" {
		c.Schedule.CSVURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MOINGHUB_SCHEDULE_REVALIDATE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Schedule.RevalidateSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOINGHUB_YOUTUBE_API_KEY")); v != "" {
		c.YouTube.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("MOINGHUB_CHZZK_CHANNEL_ID")); v != "" {
		c.Chzzk.ChannelID = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
//
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".moinghub-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
