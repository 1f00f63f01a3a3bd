package engine

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/nou/engine/core"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

// CONFIG_ENV names the environment variable that overrides the config path.
const CONFIG_ENV = "NOU_CONFIG"

const defaultConfigPath = "engine.toml"

type WindowConfig struct {
	Title string `toml:"title"`
	// Window starting position, if applicable.
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// One of fifo, mailbox, immediate.
	PresentMode   string  `toml:"present_mode"`
	Validation    bool    `toml:"validation"`
	Overlay       bool    `toml:"overlay"`
	FrameBudgetMs float64 `toml:"frame_budget_ms"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ShaderConfig struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// Rebuild pipelines when the SPIR-V files change on disk.
	HotReload bool `toml:"hot_reload"`
}

type AssetConfig struct {
	// Empty or missing means a generated checkerboard.
	Texture string `toml:"texture"`
}

type ApplicationConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Log      LogConfig      `toml:"log"`
	Shaders  ShaderConfig   `toml:"shaders"`
	Assets   AssetConfig    `toml:"assets"`
}

func DefaultConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Window: WindowConfig{
			Title:  "Nou",
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			PresentMode:    "fifo",
			Validation:     true,
			Overlay:        true,
			FrameBudgetMs:  1000.0 / 60.0,
		},
		Log: LogConfig{Level: "info"},
		Shaders: ShaderConfig{
			Vertex:   "shaders/vert.spv",
			Fragment: "shaders/frag.spv",
		},
	}
}

// ConfigPath returns the file named by NOU_CONFIG, or engine.toml.
func ConfigPath() string {
	if path := os.Getenv(CONFIG_ENV); path != "" {
		return path
	}
	return defaultConfigPath
}

// LoadConfig decodes path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*ApplicationConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		core.LogWarn("config file %s not found, using defaults", path)
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > vulkan.VULKAN_MAX_FRAMES_IN_FLIGHT {
		return errors.Newf("frames_in_flight %d out of range 1..%d", c.Renderer.FramesInFlight, vulkan.VULKAN_MAX_FRAMES_IN_FLIGHT)
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	if c.Renderer.FrameBudgetMs < 0 {
		return errors.Newf("frame_budget_ms %f is negative", c.Renderer.FrameBudgetMs)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return errors.Newf("unknown log level %q", c.Log.Level)
	}
	if c.Shaders.Vertex == "" || c.Shaders.Fragment == "" {
		return errors.New("both shader paths are required")
	}
	return nil
}

// PresentMode maps the configured name onto the Vulkan present mode.
func (c *ApplicationConfig) PresentMode() (vk.PresentMode, error) {
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "fifo", "":
		return vk.PresentModeFifo, nil
	case "mailbox":
		return vk.PresentModeMailbox, nil
	case "immediate":
		return vk.PresentModeImmediate, nil
	}
	return vk.PresentModeFifo, errors.Newf("unknown present mode %q", c.Renderer.PresentMode)
}

func (c *ApplicationConfig) backendConfig() vulkan.BackendConfig {
	mode, _ := c.PresentMode()
	return vulkan.BackendConfig{
		ApplicationName: c.Window.Title,
		Validation:      c.Renderer.Validation,
		FramesInFlight:  c.Renderer.FramesInFlight,
		PresentMode:     mode,
		Overlay:         c.Renderer.Overlay,
		FrameBudgetMs:   c.Renderer.FrameBudgetMs,
	}
}
