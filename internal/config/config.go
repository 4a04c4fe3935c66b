package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/crate/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Library   LibraryConfig   `mapstructure:"library"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	UI        UIConfig        `mapstructure:"ui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// LibraryConfig controls where the download snapshot lives
type LibraryConfig struct {
	StateDir        string  `mapstructure:"state_dir"`        // empty = memory only
	Profile         string  `mapstructure:"profile"`          // one database per profile
	CheckpointEvery int     `mapstructure:"checkpoint_every"` // mutations between saves, 0 = shutdown only
	Liked           []int64 `mapstructure:"liked"`            // track ids shown on the liked page

	// Display names for attributed origins, keyed by playlist/album id
	Playlists map[string]string `mapstructure:"playlists"`
	Albums    map[string]string `mapstructure:"albums"`
}

// WorkerConfig describes the external download worker
type WorkerConfig struct {
	Command      string   `mapstructure:"command"`
	Args         []string `mapstructure:"args"`
	CancelPolicy string   `mapstructure:"cancel_policy"` // "remove" or "keep"
}

// SchedulerConfig holds refresh pacing
type SchedulerConfig struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	DefaultPage string `mapstructure:"default_page"` // "downloads" or "liked"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "auto", "console" or "json"
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			StateDir:        defaultStatePath(),
			Profile:         "default",
			CheckpointEvery: 25,
			Liked:           []int64{},
			Playlists:       map[string]string{},
			Albums:          map[string]string{},
		},
		Worker: WorkerConfig{
			Command:      "",
			Args:         []string{},
			CancelPolicy: "remove",
		},
		Scheduler: SchedulerConfig{
			FrameInterval: 16 * time.Millisecond,
		},
		UI: UIConfig{
			DefaultPage: "downloads",
		},
		Logging: LoggingConfig{
			File:   defaultLogPath(),
			Level:  "INFO",
			Format: "auto",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "crate", "crate.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "crate", "crate.log")
	}
}

// defaultStatePath returns the default snapshot directory for the current OS
func defaultStatePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "crate", "state")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "crate", "state")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "crate")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "crate")
	}
}

// newViper registers every key with its default so environment overrides
// reach Unmarshal even when no config file sets them
func newViper() *viper.Viper {
	v := viper.New()
	setAll(v, DefaultConfig())

	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setAll(v *viper.Viper, cfg *Config) {
	set := v.SetDefault
	set("library.state_dir", cfg.Library.StateDir)
	set("library.profile", cfg.Library.Profile)
	set("library.checkpoint_every", cfg.Library.CheckpointEvery)
	set("library.liked", cfg.Library.Liked)
	set("library.playlists", cfg.Library.Playlists)
	set("library.albums", cfg.Library.Albums)

	set("worker.command", cfg.Worker.Command)
	set("worker.args", cfg.Worker.Args)
	set("worker.cancel_policy", cfg.Worker.CancelPolicy)

	set("scheduler.frame_interval", cfg.Scheduler.FrameInterval)

	set("ui.default_page", cfg.UI.DefaultPage)

	set("logging.file", cfg.Logging.File)
	set("logging.level", cfg.Logging.Level)
	set("logging.format", cfg.Logging.Format)
}

// LoadConfig loads configuration from file and environment. An empty path
// searches the default config directory and the working directory.
func LoadConfig(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the program cannot honor
func (c *Config) Validate() error {
	switch c.Worker.CancelPolicy {
	case "remove", "keep":
	default:
		return fmt.Errorf("worker.cancel_policy: unsupported value %q", c.Worker.CancelPolicy)
	}
	if c.Scheduler.FrameInterval <= 0 {
		return fmt.Errorf("scheduler.frame_interval must be positive, got %s", c.Scheduler.FrameInterval)
	}
	if c.Library.CheckpointEvery < 0 {
		return fmt.Errorf("library.checkpoint_every must not be negative")
	}
	switch c.UI.DefaultPage {
	case "downloads", "liked":
	default:
		return fmt.Errorf("ui.default_page: unsupported value %q", c.UI.DefaultPage)
	}
	return nil
}

// SaveConfig writes cfg as YAML into dir (the default config directory when empty)
func SaveConfig(cfg *Config, dir string) (string, error) {
	if dir == "" {
		dir = DefaultConfigPath()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	set := v.Set
	set("library.state_dir", cfg.Library.StateDir)
	set("library.profile", cfg.Library.Profile)
	set("library.checkpoint_every", cfg.Library.CheckpointEvery)
	set("library.liked", cfg.Library.Liked)
	set("library.playlists", cfg.Library.Playlists)
	set("library.albums", cfg.Library.Albums)
	set("worker.command", cfg.Worker.Command)
	set("worker.args", cfg.Worker.Args)
	set("worker.cancel_policy", cfg.Worker.CancelPolicy)
	set("scheduler.frame_interval", cfg.Scheduler.FrameInterval.String())
	set("ui.default_page", cfg.UI.DefaultPage)
	set("logging.file", cfg.Logging.File)
	set("logging.level", cfg.Logging.Level)
	set("logging.format", cfg.Logging.Format)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return configFile, nil
}

// Catalog builds the display-name catalog from the library section
func (c *Config) Catalog() *domain.StaticCatalog {
	playlists := make([]domain.Playlist, 0, len(c.Library.Playlists))
	for id, title := range c.Library.Playlists {
		playlists = append(playlists, domain.Playlist{ID: id, Title: title})
	}
	albums := make([]domain.Album, 0, len(c.Library.Albums))
	for id, title := range c.Library.Albums {
		albums = append(albums, domain.Album{ID: id, Title: title})
	}
	return domain.NewStaticCatalog(playlists, albums)
}

// LikedTracks returns the liked page's track ids, dropping invalid ones
func (c *Config) LikedTracks() []domain.TrackID {
	ids := make([]domain.TrackID, 0, len(c.Library.Liked))
	for _, raw := range c.Library.Liked {
		if id := domain.TrackID(raw); id.Valid() {
			ids = append(ids, id)
		}
	}
	return ids
}
