// Package config loads the compositor configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv overrides the configuration file location.
const ConfigEnv = "ASTER_CONFIG"

// Config holds the server's tunables. Every field has a working default;
// the file only needs to name what it changes.
type Config struct {
	// FrameIntervalMs is the render thread's sleep between passes.
	FrameIntervalMs int `yaml:"frame_interval_ms"`

	Animations AnimationsConfig `yaml:"animations"`
	Input      InputConfig      `yaml:"input"`

	// ScreenshotPath is where screenshot shortcuts write their PNG.
	ScreenshotPath string `yaml:"screenshot_path"`

	// ResizeWithRightButton selects Alt+Right instead of Alt+Middle for
	// interactive resize.
	ResizeWithRightButton bool `yaml:"resize_with_right_button"`

	// Framebuffer is the display device for non-nested operation.
	Framebuffer string `yaml:"framebuffer"`
}

// AnimationsConfig is the per-effect duration table, in milliseconds.
type AnimationsConfig struct {
	FadeInMs  int `yaml:"fade_in_ms"`
	FadeOutMs int `yaml:"fade_out_ms"`
}

// InputConfig names the raw input devices the server reads.
type InputConfig struct {
	MouseDevice    string `yaml:"mouse_device"`
	KeyboardDevice string `yaml:"keyboard_device"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		FrameIntervalMs: 16,
		Animations: AnimationsConfig{
			FadeInMs:  200,
			FadeOutMs: 200,
		},
		Input: InputConfig{
			MouseDevice:    "/dev/mouse",
			KeyboardDevice: "/dev/kbd",
		},
		ScreenshotPath: "/tmp/screenshot.png",
		Framebuffer:    "/dev/fb0",
	}
}

// Load reads the configuration from path, layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve returns the configuration from the explicit path, the ConfigEnv
// override, or the well-known location. A missing file yields the defaults,
// except when the path was given explicitly, which is an error.
func Resolve(explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".config", "aster", "config.yaml")
	}
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && explicit == "" {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// FrameInterval returns the render cadence as a duration.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameIntervalMs <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// FadeIn returns the fade-in animation length.
func (c *Config) FadeIn() time.Duration {
	return time.Duration(c.Animations.FadeInMs) * time.Millisecond
}

// FadeOut returns the fade-out animation length.
func (c *Config) FadeOut() time.Duration {
	return time.Duration(c.Animations.FadeOutMs) * time.Millisecond
}
