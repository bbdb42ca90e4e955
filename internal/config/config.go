package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Port         string
	AllowOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Load reads configuration from an optional toml file, then applies
// environment variables on top. Env always wins so deployments can
// override the checked-in defaults without touching the file.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	configName := "config"
	if name := os.Getenv("CONFIG_NAME"); name != "" {
		configName = name
	}

	viper.SetConfigName(configName)
	viper.SetConfigType("toml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.alloworigins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.bucket", "request-attachments")
	viper.SetDefault("jwt.accesstokenttl", 24*time.Hour)
	viper.SetDefault("jwt.refreshtokenttl", 7*24*time.Hour)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Debug("no config file found, using defaults and env")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnv(cfg)

	cfg.Redis.DialTimeout = 10 * time.Second
	cfg.Redis.ReadTimeout = 10 * time.Second

	log.Info("config parsed")
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent(&cfg.Server.Port, "PORT")
	setIfPresent(&cfg.Database.Host, "DB_HOST")
	setIfPresent(&cfg.Database.Port, "DB_PORT")
	setIfPresent(&cfg.Database.User, "DB_USER")
	setIfPresent(&cfg.Database.Password, "DB_PASSWORD")
	setIfPresent(&cfg.Database.Name, "DB_NAME")
	setIfPresent(&cfg.Database.SSLMode, "DB_SSLMODE")
	setIfPresent(&cfg.Redis.Addr, "REDIS_ADDR")
	setIfPresent(&cfg.Redis.Password, "REDIS_PASSWORD")
	setIfPresent(&cfg.MinIO.Endpoint, "MINIO_ENDPOINT")
	setIfPresent(&cfg.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setIfPresent(&cfg.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setIfPresent(&cfg.MinIO.Bucket, "MINIO_BUCKET")
	setIfPresent(&cfg.JWT.Secret, "JWT_SECRET")
	if os.Getenv("MINIO_USE_SSL") == "true" {
		cfg.MinIO.UseSSL = true
	}
}

func setIfPresent(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=" + c.SSLMode
}
