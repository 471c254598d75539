package config

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		ArchivePath: "./archive",
		InboxPath:   "./inbox",
		Telegram: Telegram{
			Enabled:      false,
			Token:        "",                  // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{"user1"},   // No @
			BotHandle:    "@SitevaultDemoBot", // With @
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./catalog.db",
		},
		Import: Import{
			Workers:          4,
			DeleteOriginals:  false,
			AutoStartWatcher: false,
			WatchLocationID:  "",
			GPS: GPSPolicy{
				MinorKm: 1,
				MajorKm: 10,
			},
			Extensions: Extensions{
				Image:    []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".tif", ".tiff", ".heic", ".bmp", ".raw", ".dng"},
				Video:    []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".m4v", ".mts", ".wmv"},
				Audio:    []string{".mp3", ".flac", ".wav", ".m4a", ".ogg"},
				Map:      []string{".gpx", ".kml", ".kmz", ".geojson", ".shp"},
				Document: []string{".pdf", ".txt", ".md", ".doc", ".docx", ".rtf"},
			},
			Extractors: Extractors{
				ExiftoolPath:   "exiftool",
				FfprobePath:    "ffprobe",
				TimeoutSeconds: 30,
			},
			Thumbnails: Thumbnails{
				Enabled: true,
				Width:   360,
				Quality: 85,
			},
		},
		Jobs: Jobs{
			Log:     true,
			LogPath: "./logs/jobs",
			Webhooks: WebhookConfig{
				Enabled:  false,
				JobTypes: []string{},
				Command:  "",
			},
		},
	}
}
