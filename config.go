package sjik

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFile is the default configuration file name.
const ConfigFile = "sjik.toml"

// Config represents the sjik.toml configuration file
type Config struct {
	App    AppConfig    `toml:"app"`
	Window WindowConfig `toml:"window"`
	Assets AssetsConfig `toml:"assets"`
	Theme  ThemeConfig  `toml:"theme"`
	GPU    GPUConfig    `toml:"gpu"`
	Media  MediaConfig  `toml:"media"`
	Log    LogConfig    `toml:"log"`
}

type AppConfig struct {
	Name string `toml:"name"`
	// HTML page rendered by `sjik run`
	Page string `toml:"page"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type AssetsConfig struct {
	// Directory img sources are resolved against
	Dir string `toml:"dir"`
}

type ThemeConfig struct {
	// Optional palette file merged over the built-in colors
	Palette string `toml:"palette"`
}

type GPUConfig struct {
	// vulkan, gles, metal, dx12 or noop; empty picks the platform default
	Backend string `toml:"backend"`
}

type MediaConfig struct {
	Source     string `toml:"source"`
	HWAccel    string `toml:"hwaccel"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	VideoQueue int    `toml:"video_queue"`
}

type LogConfig struct {
	// debug, info, warn or error
	Level string `toml:"level"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name: "sjik",
			Page: "page.html",
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "sjik",
		},
		Assets: AssetsConfig{Dir: "assets"},
		GPU:    GPUConfig{Backend: DefaultBackend()},
		Media: MediaConfig{
			SampleRate: 48000,
			Channels:   2,
			VideoQueue: 10,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Media.Channels != 1 && c.Media.Channels != 2 {
		return fmt.Errorf("media.channels must be 1 or 2, got %d", c.Media.Channels)
	}
	if c.Media.SampleRate <= 0 {
		return fmt.Errorf("media.sample_rate must be positive, got %d", c.Media.SampleRate)
	}
	if c.Media.VideoQueue <= 0 {
		return fmt.Errorf("media.video_queue must be positive, got %d", c.Media.VideoQueue)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
