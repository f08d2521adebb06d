package configuration

import "github.com/adampresley/configinator"

type Config struct {
	Host               string `flag:"host" env:"HOST" default:"localhost:8080" description:"The address and port to bind the HTTP server to"`
	LogLevel           string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	StorageRoot        string `flag:"storageroot" env:"STORAGE_ROOT" default:"./data/photos" description:"Root directory for stored photos"`
	ThumbnailRoot      string `flag:"thumbroot" env:"THUMBNAIL_ROOT" default:"./data/thumbnails" description:"Root directory for generated thumbnails"`
	SpoolDir           string `flag:"spooldir" env:"SPOOL_DIR" default:"./data/spool" description:"Working directory for archive downloads"`
	RegistryBackend    string `flag:"registrybackend" env:"REGISTRY_BACKEND" default:"file" description:"Album registry backend. Valid values are 'file', 'badger', and 'sqlite'"`
	RegistryPath       string `flag:"registrypath" env:"REGISTRY_PATH" default:"./data/registry.json" description:"Path to the registry file or database directory"`
	RegistryDSN        string `flag:"registrydsn" env:"REGISTRY_DSN" default:"file:./data/photovault.db" description:"Data source name for the sqlite registry backend"`
	MaxUploadSizeMB    int    `flag:"maxupload" env:"MAX_UPLOAD_SIZE_MB" default:"50" description:"Per-file upload size ceiling in megabytes"`
	ThumbnailSize      int    `flag:"thumbsize" env:"THUMBNAIL_SIZE" default:"400" description:"Width and height of generated square thumbnails"`
	MaxRebuildWorkers  int    `flag:"mrw" env:"MAX_REBUILD_WORKERS" default:"20" description:"Maximum number of concurrent thumbnail rebuild workers"`
	SpoolMaxAgeMinutes int    `flag:"spoolmaxage" env:"SPOOL_MAX_AGE_MINUTES" default:"60" description:"Age in minutes after which abandoned spool files are removed"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}
