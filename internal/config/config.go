package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/params"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr       = ":9000"
	DefaultBackendURL = "http://localhost:8000"
	DefaultTimeout    = 60 * time.Second
	DefaultProvider   = "genkit"
	DefaultGenkitURL  = "http://localhost:3400"
	DefaultGeminiURL  = "https://generativelanguage.googleapis.com"
	DefaultTextModel  = "gemini-2.0-flash"
	DefaultImageModel = "imagen-4.0-fast-generate-001"
	DefaultExportDir  = ".pinnlab"
)

type Config struct {
	Server    ServerConfig                `yaml:"server"`
	Backend   BackendConfig               `yaml:"backend"`
	AI        AIConfig                    `yaml:"ai"`
	Grid      GridConfig                  `yaml:"grid"`
	Defaults  params.SimulationParameters `yaml:"defaults"`
	Log       LogConfig                   `yaml:"log"`
	ExportDir string                      `yaml:"export_dir"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AIConfig struct {
	Provider string        `yaml:"provider"`
	Timeout  time.Duration `yaml:"timeout"`
	Genkit   GenkitConfig  `yaml:"genkit"`
	Gemini   GeminiConfig  `yaml:"gemini"`
}

type GenkitConfig struct {
	URL string `yaml:"url"`
}

type GeminiConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TextModel  string `yaml:"text_model"`
	ImageModel string `yaml:"image_model"`
}

type GridConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Shape  string `yaml:"shape"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Timeout: DefaultTimeout,
		},
		AI: AIConfig{
			Provider: DefaultProvider,
			Timeout:  DefaultTimeout,
			Genkit:   GenkitConfig{URL: DefaultGenkitURL},
			Gemini: GeminiConfig{
				BaseURL:    DefaultGeminiURL,
				TextModel:  DefaultTextModel,
				ImageModel: DefaultImageModel,
			},
		},
		Grid: GridConfig{
			Width:  geometry.GridWidth,
			Height: geometry.GridHeight,
			Shape:  string(geometry.Cylinder),
		},
		Defaults:  params.Default(),
		Log:       LogConfig{Level: "info", Format: "text"},
		ExportDir: DefaultExportDir,
	}
}

// Load reads a YAML file, or an INI file when the extension is .ini, on top
// of the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		file, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		loadINI(cfg, file)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func loadINI(cfg *Config, file *ini.File) {
	server := file.Section("server")
	cfg.Server.Addr = server.Key("addr").MustString(cfg.Server.Addr)
	if origins := server.Key("allowed_origins").Strings(","); len(origins) > 0 {
		cfg.Server.AllowedOrigins = origins
	}

	backend := file.Section("backend")
	cfg.Backend.URL = backend.Key("url").MustString(cfg.Backend.URL)
	cfg.Backend.Timeout = backend.Key("timeout").MustDuration(cfg.Backend.Timeout)

	ai := file.Section("ai")
	cfg.AI.Provider = ai.Key("provider").MustString(cfg.AI.Provider)
	cfg.AI.Timeout = ai.Key("timeout").MustDuration(cfg.AI.Timeout)
	cfg.AI.Genkit.URL = file.Section("ai.genkit").Key("url").MustString(cfg.AI.Genkit.URL)

	gemini := file.Section("ai.gemini")
	cfg.AI.Gemini.BaseURL = gemini.Key("base_url").MustString(cfg.AI.Gemini.BaseURL)
	cfg.AI.Gemini.APIKey = gemini.Key("api_key").MustString(cfg.AI.Gemini.APIKey)
	cfg.AI.Gemini.TextModel = gemini.Key("text_model").MustString(cfg.AI.Gemini.TextModel)
	cfg.AI.Gemini.ImageModel = gemini.Key("image_model").MustString(cfg.AI.Gemini.ImageModel)

	grid := file.Section("grid")
	cfg.Grid.Width = grid.Key("width").MustInt(cfg.Grid.Width)
	cfg.Grid.Height = grid.Key("height").MustInt(cfg.Grid.Height)
	cfg.Grid.Shape = grid.Key("shape").MustString(cfg.Grid.Shape)

	defaults := file.Section("defaults")
	cfg.Defaults.ReynoldsNumber = defaults.Key("reynolds_number").MustFloat64(cfg.Defaults.ReynoldsNumber)
	cfg.Defaults.KinematicViscosity = defaults.Key("kinematic_viscosity").MustFloat64(cfg.Defaults.KinematicViscosity)
	cfg.Defaults.FluidDensity = defaults.Key("fluid_density").MustFloat64(cfg.Defaults.FluidDensity)

	log := file.Section("log")
	cfg.Log.Level = log.Key("level").MustString(cfg.Log.Level)
	cfg.Log.Format = log.Key("format").MustString(cfg.Log.Format)

	cfg.ExportDir = file.Section("").Key("export_dir").MustString(cfg.ExportDir)
}

// ApplyEnv overrides fields from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	// the old front end read NEXT_PUBLIC_BACKEND_URL; ours wins when both are set
	if v := getenv("NEXT_PUBLIC_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := getenv("PINNLAB_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := getenv("PINNLAB_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("PINNLAB_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := getenv("PINNLAB_GENKIT_URL"); v != "" {
		c.AI.Genkit.URL = v
	}
	if v := getenv("GOOGLE_API_KEY"); v != "" {
		c.AI.Gemini.APIKey = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.AI.Gemini.APIKey = v
	}
	if v := getenv("PINNLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if _, err := geometry.ParseShape(c.Grid.Shape); err != nil {
		return err
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if c.Backend.Timeout < 0 || c.AI.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func (c *Config) Shape() geometry.Shape {
	s, err := geometry.ParseShape(c.Grid.Shape)
	if err != nil {
		return geometry.Cylinder
	}
	return s
}
