package nge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	// ErrConfig marks missing or malformed configuration files.
	ErrConfig = errors.New("configuration error")
	// ErrAsset marks assets that cannot be found or decoded.
	ErrAsset = errors.New("asset error")
)

const (
	DefaultWindowTitle  = "Natural Gravity Engine"
	DefaultWindowWidth  = 800
	DefaultWindowHeight = 600
)

// DisplayConfig describes the single application window.
type DisplayConfig struct {
	Title      string     `yaml:"title"`
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Fullscreen bool       `yaml:"fullscreen"`
	Monitor    int        `yaml:"monitor"`
	VSync      bool       `yaml:"vsync"`
	ClearColor [4]float32 `yaml:"clear_color"`
}

func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Title:      DefaultWindowTitle,
		Width:      DefaultWindowWidth,
		Height:     DefaultWindowHeight,
		VSync:      true,
		ClearColor: [4]float32{0, 0, 0, 1},
	}
}

// LoadDisplayConfig reads a YAML display file over the defaults. A missing
// file yields the defaults; a malformed one is an ErrConfig.
func LoadDisplayConfig(path string) (DisplayConfig, error) {
	cfg := DefaultDisplayConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: reading display config %s: %v", ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing display config %s: %v", ErrConfig, path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return cfg, nil
}

func (c DisplayConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("window dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Monitor < 0 {
		return fmt.Errorf("monitor index must not be negative, got %d", c.Monitor)
	}
	return nil
}

// AxisBinding maps a logical axis to keys that push it towards +1 and -1.
type AxisBinding struct {
	Pos []string `yaml:"pos"`
	Neg []string `yaml:"neg"`
}

// InputBindings is the declarative mapping from logical names to keys.
type InputBindings struct {
	Axes    map[string]AxisBinding `yaml:"axes"`
	Actions map[string][]string    `yaml:"actions"`
}

// LoadInputBindings reads and validates a YAML bindings file. Unlike the
// display config the file is required.
func LoadInputBindings(path string) (InputBindings, error) {
	var b InputBindings

	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("%w: reading input bindings: %v", ErrConfig, err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("%w: parsing input bindings %s: %v", ErrConfig, path, err)
	}
	if err := b.validate(); err != nil {
		return b, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return b, nil
}

func (b InputBindings) validate() error {
	for name, axis := range b.Axes {
		for _, k := range append(append([]string{}, axis.Pos...), axis.Neg...) {
			if _, ok := KeyByName(k); !ok {
				return fmt.Errorf("axis %q: unknown key %q", name, k)
			}
		}
	}
	for name, keys := range b.Actions {
		for _, k := range keys {
			if _, ok := KeyByName(k); !ok {
				return fmt.Errorf("action %q: unknown key %q", name, k)
			}
		}
	}
	return nil
}

// ApplicationRootDir resolves the directory config/ and assets/ live in:
// $NGE_APP_ROOT, else the executable's directory, else the working directory.
func ApplicationRootDir() (string, error) {
	if root := os.Getenv("NGE_APP_ROOT"); root != "" {
		return filepath.Abs(root)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if _, err := os.Stat(filepath.Join(dir, "config")); err == nil {
			return dir, nil
		}
	}
	return os.Getwd()
}
