package config

// Config holds the application configuration.
type Config struct {
	ArchivePath string   `yaml:"archivePath" validate:"required"`
	InboxPath   string   `yaml:"inboxPath"`
	Telegram    Telegram `yaml:"telegram"`
	Logger      Logger   `yaml:"logger"`
	Server      Server   `yaml:"server"`
	Database    Database `yaml:"database"`
	Import      Import   `yaml:"import"`
	Jobs        Jobs     `yaml:"jobs"`
}

type Jobs struct {
	Log      bool          `yaml:"log"`
	LogPath  string        `yaml:"log_path"`
	Webhooks WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Enabled  bool     `yaml:"enabled"`
	JobTypes []string `yaml:"job_types"`
	Command  string   `yaml:"command"`
}

// Import holds the configuration for the media import pipeline.
type Import struct {
	Workers          int        `yaml:"workers" validate:"gte=0"`
	DeleteOriginals  bool       `yaml:"delete_originals"`
	AutoStartWatcher bool       `yaml:"auto_start_watcher"`
	WatchLocationID  string     `yaml:"watch_location_id"`
	GPS              GPSPolicy  `yaml:"gps"`
	Extensions       Extensions `yaml:"extensions"`
	Extractors       Extractors `yaml:"extractors"`
	Thumbnails       Thumbnails `yaml:"thumbnails"`
}

// GPSPolicy holds the distance tiers for GPS mismatch warnings, in kilometers.
type GPSPolicy struct {
	MinorKm float64 `yaml:"minor_km"`
	MajorKm float64 `yaml:"major_km"`
}

// Extensions holds the file-extension lists used to classify media. Anything
// not listed imports as a document.
type Extensions struct {
	Image    []string `yaml:"image"`
	Video    []string `yaml:"video"`
	Audio    []string `yaml:"audio"`
	Map      []string `yaml:"map"`
	Document []string `yaml:"document"`
}

// Extractors holds the configuration for the external metadata tools.
type Extractors struct {
	ExiftoolPath   string `yaml:"exiftool_path"`
	FfprobePath    string `yaml:"ffprobe_path"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
}

// Thumbnails holds the configuration for image thumbnail generation.
type Thumbnails struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Quality int  `yaml:"quality"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server holds the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}
