package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Lock backends supported by the assessment engine.
const (
	LockBackendRedis = "redis"
	LockBackendLocal = "local"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Cache      CacheConfig
	Assessment AssessmentConfig
	Recalc     RecalcConfig
	Migrations MigrationsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles the Redis read-through cache for assessment setups.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AssessmentConfig tunes the scoring engine.
type AssessmentConfig struct {
	DefaultSetupName    string
	GenerationBatchSize int
	LockBackend         string
	LockTTL             time.Duration
	LockWait            time.Duration
}

// RecalcConfig configures the background recalculation queue.
type RecalcConfig struct {
	Workers    int
	Retries    int
	BufferSize int
}

// MigrationsConfig controls schema migrations on startup.
type MigrationsConfig struct {
	AutoMigrate bool
}

// Option adjusts the viper instance after defaults and files are read.
type Option func(v *viper.Viper)

// WithOverride forces key to value, taking precedence over env and .env.
func WithOverride(key string, value interface{}) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

func Load(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	for _, opt := range opts {
		opt(v)
	}

	return FromViper(v), nil
}

// FromViper materialises a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_CACHE"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 10*time.Minute),
	}

	batchSize := v.GetInt("ASSESSMENT_GENERATION_BATCH_SIZE")
	if batchSize <= 0 {
		batchSize = 50
	}
	backend := strings.ToLower(strings.TrimSpace(v.GetString("ASSESSMENT_LOCK_BACKEND")))
	if backend != LockBackendRedis {
		backend = LockBackendLocal
	}
	cfg.Assessment = AssessmentConfig{
		DefaultSetupName:    v.GetString("ASSESSMENT_DEFAULT_SETUP_NAME"),
		GenerationBatchSize: batchSize,
		LockBackend:         backend,
		LockTTL:             parseDuration(v.GetString("ASSESSMENT_LOCK_TTL"), 10*time.Second),
		LockWait:            parseDuration(v.GetString("ASSESSMENT_LOCK_WAIT"), 3*time.Second),
	}

	cfg.Recalc = RecalcConfig{
		Workers:    v.GetInt("RECALC_WORKERS"),
		Retries:    v.GetInt("RECALC_RETRIES"),
		BufferSize: v.GetInt("RECALC_BUFFER_SIZE"),
	}

	cfg.Migrations = MigrationsConfig{
		AutoMigrate: v.GetBool("MIGRATIONS_AUTO"),
	}

	return cfg
}

// SetDefaults registers default values on the provided viper instance.
func SetDefaults(v *viper.Viper) {
	setDefaults(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_assessment")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "10m")

	v.SetDefault("ASSESSMENT_DEFAULT_SETUP_NAME", "Full Term Assessment")
	v.SetDefault("ASSESSMENT_GENERATION_BATCH_SIZE", 50)
	v.SetDefault("ASSESSMENT_LOCK_BACKEND", LockBackendLocal)
	v.SetDefault("ASSESSMENT_LOCK_TTL", "10s")
	v.SetDefault("ASSESSMENT_LOCK_WAIT", "3s")

	v.SetDefault("RECALC_WORKERS", 2)
	v.SetDefault("RECALC_RETRIES", 3)
	v.SetDefault("RECALC_BUFFER_SIZE", 32)

	v.SetDefault("MIGRATIONS_AUTO", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
