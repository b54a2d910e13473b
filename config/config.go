package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	BusinessTimezone  string `mapstructure:"BUSINESS_TIMEZONE"` // IANA zone used for calendar dates

	// MongoDB record store.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// File storage: "cloudinary", "gcs" or "minio".
	StorageBackend        string `mapstructure:"STORAGE_BACKEND"`
	DocumentEncryptionKey string `mapstructure:"DOCUMENT_ENCRYPTION_KEY"`

	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	GCSBucket          string `mapstructure:"GCS_BUCKET"`
	GCSCredentialsFile string `mapstructure:"GCS_CREDENTIALS_FILE"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Company identity printed on agreements.
	CompanyName      string `mapstructure:"COMPANY_NAME"`
	CompanyAddress   string `mapstructure:"COMPANY_ADDRESS"`
	CompanyPhone     string `mapstructure:"COMPANY_PHONE"`
	CompanyEmail     string `mapstructure:"COMPANY_EMAIL"`
	CompanyLogoPaths string `mapstructure:"COMPANY_LOGO_PATHS"` // comma separated, tried in order

	// Agreement rendering.
	AssetDir          string        `mapstructure:"ASSET_DIR"`
	PublicOrigin      string        `mapstructure:"PUBLIC_ORIGIN"`
	ImageFetchTimeout time.Duration `mapstructure:"IMAGE_FETCH_TIMEOUT"`
	PDFCompression    bool          `mapstructure:"PDF_COMPRESSION"`

	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("BUSINESS_TIMEZONE", "Europe/London")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "rentline")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("STORAGE_BACKEND", "cloudinary")
	v.SetDefault("DOCUMENT_ENCRYPTION_KEY", "")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "rentline")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("COMPANY_NAME", "Rentline Vehicle Hire Ltd")
	v.SetDefault("COMPANY_ADDRESS", "")
	v.SetDefault("COMPANY_PHONE", "")
	v.SetDefault("COMPANY_EMAIL", "")
	v.SetDefault("COMPANY_LOGO_PATHS", "/assets/logo.png,/assets/logo-fallback.png,/logo.png")
	v.SetDefault("ASSET_DIR", "./public")
	v.SetDefault("PUBLIC_ORIGIN", "")
	v.SetDefault("IMAGE_FETCH_TIMEOUT", "8s")
	v.SetDefault("PDF_COMPRESSION", true)
	v.SetDefault("WORKER_CONCURRENCY", 4)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// LogoPaths splits COMPANY_LOGO_PATHS into its ordered candidates.
func (c Config) LogoPaths() []string {
	var out []string
	for _, p := range strings.Split(c.CompanyLogoPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BusinessLocation loads BUSINESS_TIMEZONE, falling back to UTC when it is
// empty or unknown.
func (c Config) BusinessLocation() *time.Location {
	if c.BusinessTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		log.Printf("Unknown BUSINESS_TIMEZONE %q, using UTC", c.BusinessTimezone)
		return time.UTC
	}
	return loc
}
