// Package config loads gallery build settings from gallery.yaml, the
// environment and .env files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/gallerybuilder/internal/assets"
	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "gallery.yaml"

// Config represents the application configuration.
type Config struct {
	Dest       string `yaml:"dest"`
	Template   string `yaml:"template"`
	GC         bool   `yaml:"gc"`
	RegenPages bool   `yaml:"regen_pages"`

	// Seed drives the thumbnail shuffle.
	Seed          uint64        `yaml:"seed"`
	FlushInterval time.Duration `yaml:"flush_interval"`

	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Formats   FormatsConfig   `yaml:"formats"`
	Tools     ToolsConfig     `yaml:"tools"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Watch     WatchConfig     `yaml:"watch"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

// ThumbnailConfig controls derived thumbnails.
type ThumbnailConfig struct {
	Size    int `yaml:"size"`
	Quality int `yaml:"quality"`
}

// FormatsConfig lists the extensions of each media type.
type FormatsConfig struct {
	Image           []string `yaml:"image"`
	Video           []string `yaml:"video"`
	Music           []string `yaml:"music"`
	Misc            []string `yaml:"misc"`
	ShowUnsupported *bool    `yaml:"show_unsupported,omitempty"`
}

// ToolsConfig names the external media tools.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

// EventsConfig controls the build event log.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`

	// Retention drops runs older than this when a build starts; 0 keeps all.
	Retention time.Duration `yaml:"retention,omitempty"`
}

// MetricsConfig controls the metrics textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// ScheduleConfig controls periodic rebuilds.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Cron takes precedence over Interval when set.
	Cron string `yaml:"cron,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads configuration from the specified file. A missing file at the
// default location yields the defaults; a missing explicit file is an error.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultFileName
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.ConfigError("failed to read config file").
			WithCause(err).
			WithContext("file", configPath).
			Build()
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.ConfigError("failed to unmarshal config").
			WithCause(err).
			WithContext("file", configPath).
			Build()
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := assets.DefaultClassifier()
	if cfg.Seed == 0 {
		cfg.Seed = 9001
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 60 * time.Second
	}
	if cfg.Thumbnail.Size == 0 {
		cfg.Thumbnail.Size = 256
	}
	if cfg.Thumbnail.Quality == 0 {
		cfg.Thumbnail.Quality = 75
	}
	if cfg.Formats.Image == nil {
		cfg.Formats.Image = def.Image
	}
	if cfg.Formats.Video == nil {
		cfg.Formats.Video = def.Video
	}
	if cfg.Formats.Music == nil {
		cfg.Formats.Music = def.Music
	}
	if cfg.Formats.ShowUnsupported == nil {
		show := def.ShowUnsupported
		cfg.Formats.ShowUnsupported = &show
	}
	if cfg.Tools.FFmpeg == "" {
		cfg.Tools.FFmpeg = "ffmpeg"
	}
	if cfg.Tools.FFprobe == "" {
		cfg.Tools.FFprobe = "ffprobe"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Schedule.Interval == 0 {
		cfg.Schedule.Interval = time.Hour
	}
}

// Classifier builds the extension tables from the formats section.
func (c *Config) Classifier() assets.Classifier {
	show := true
	if c.Formats.ShowUnsupported != nil {
		show = *c.Formats.ShowUnsupported
	}
	return assets.Classifier{
		Image:           normalizeExts(c.Formats.Image),
		Video:           normalizeExts(c.Formats.Video),
		Music:           normalizeExts(c.Formats.Music),
		Misc:            normalizeExts(c.Formats.Misc),
		ShowUnsupported: show,
	}
}

// EventsPath is where the event log lives: the configured path, or a
// hidden file inside the destination.
func (c *Config) EventsPath() string {
	if c.Events.Path != "" {
		return c.Events.Path
	}
	return c.Dest + "/.gallerybuilder/events.db"
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("file", configPath).
			Build()
	}

	example := Default()
	example.Dest = "./gallery"
	example.Template = "./template.html"
	example.GC = true
	example.Events.Enabled = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.InternalError("failed to marshal config").WithCause(err).Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.FileSystemError("failed to write config file").
			WithCause(err).
			WithContext("file", configPath).
			Build()
	}
	return nil
}
