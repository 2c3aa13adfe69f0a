package config

import "time"

// ChatSync definition chat_sync YAML structure
type ChatSync struct {
	Port    string `mapstructure:"port"`
	LogPath string `mapstructure:"log_path"`
	Debug   bool   `mapstructure:"debug"`

	Store        StoreConfig        `mapstructure:"store"`
	MongoSQL     DatabaseConfig     `mapstructure:"mongo"`
	PostgreSQL   DatabaseConfig     `mapstructure:"pg"`
	Redis        RedisConfig        `mapstructure:"redis"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Notification NotificationConfig `mapstructure:"notification"`
	JWT          JWTConfig          `mapstructure:"jwt"`
}

// StoreDriver selects the RemoteStore backend
type StoreDriver string

const (
	// StoreMemory in-process store, nothing persisted
	StoreMemory StoreDriver = "memory"
	// StoreMongo mongo documents + redis pub/sub for appends
	StoreMongo StoreDriver = "mongo"
	// StorePostgres postgres jsonb documents + LISTEN/NOTIFY for appends
	StorePostgres StoreDriver = "postgres"
)

// StoreConfig definition remote store setting
type StoreConfig struct {
	Driver StoreDriver `mapstructure:"driver"`
}

// SyncConfig definition sync engine setting
type SyncConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

// NotificationConfig definition local notification setting
type NotificationConfig struct {
	AutoGrant         bool   `mapstructure:"auto_grant"`
	PermissionBackend string `mapstructure:"permission_backend"`
}

// JWTConfig definition jwt setting
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PublicURL     string        `mapstructure:"public_url"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Defaults are applied before the YAML file is read.
var Defaults = map[string]interface{}{
	"port":                            "8080",
	"log_path":                        "./logs",
	"store.driver":                    string(StoreMemory),
	"sync.window_size":                50,
	"notification.auto_grant":         true,
	"notification.permission_backend": "memory",
	"minio.presign_expiry":            "168h",
	"minio.retry_count":               3,
	"minio.retry_interval":            2,
}
