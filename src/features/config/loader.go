package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		// Save default config to file
		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		manager := NewManager(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	applyDefaults(&cfg)

	// Override with environment variables if set
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}

	manager := NewManager(&cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// applyDefaults fills in zero values the YAML file may omit. The extension
// lists and GPS tiers are policy defaults, not hard invariants.
func applyDefaults(cfg *Config) {
	def := createDefaultConfig()
	if cfg.Import.Workers == 0 {
		cfg.Import.Workers = def.Import.Workers
	}
	if cfg.Import.GPS.MinorKm == 0 {
		cfg.Import.GPS.MinorKm = def.Import.GPS.MinorKm
	}
	if cfg.Import.GPS.MajorKm == 0 {
		cfg.Import.GPS.MajorKm = def.Import.GPS.MajorKm
	}
	if len(cfg.Import.Extensions.Image) == 0 {
		cfg.Import.Extensions.Image = def.Import.Extensions.Image
	}
	if len(cfg.Import.Extensions.Video) == 0 {
		cfg.Import.Extensions.Video = def.Import.Extensions.Video
	}
	if len(cfg.Import.Extensions.Audio) == 0 {
		cfg.Import.Extensions.Audio = def.Import.Extensions.Audio
	}
	if len(cfg.Import.Extensions.Map) == 0 {
		cfg.Import.Extensions.Map = def.Import.Extensions.Map
	}
	if len(cfg.Import.Extensions.Document) == 0 {
		cfg.Import.Extensions.Document = def.Import.Extensions.Document
	}
	if cfg.Import.Extractors.ExiftoolPath == "" {
		cfg.Import.Extractors.ExiftoolPath = def.Import.Extractors.ExiftoolPath
	}
	if cfg.Import.Extractors.FfprobePath == "" {
		cfg.Import.Extractors.FfprobePath = def.Import.Extractors.FfprobePath
	}
	if cfg.Import.Extractors.TimeoutSeconds == 0 {
		cfg.Import.Extractors.TimeoutSeconds = def.Import.Extractors.TimeoutSeconds
	}
	if cfg.Import.Thumbnails.Width == 0 {
		cfg.Import.Thumbnails.Width = def.Import.Thumbnails.Width
	}
	if cfg.Import.Thumbnails.Quality == 0 {
		cfg.Import.Thumbnails.Quality = def.Import.Thumbnails.Quality
	}
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
