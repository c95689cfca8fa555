package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	ModeInMemory    = "inmemory"
	ModeMongo       = "mongo"
	ModeMySQL       = "mysql"
	ModeCached      = "cached"
	ModeCachedMySQL = "cached-mysql"
)

type Config struct {
	StorageMode string

	MongoURL    string
	MongoDBName string
	MySQLDSN    string

	RedisURL     string
	RedisTimeout time.Duration
	PostCacheTTL time.Duration

	TimelineKey      string
	TimelineCapacity int
	DefaultLimit     int
	MaxLimit         int

	HTTPAddr       string
	LogDevelopment bool
}

// Load reads an optional .env file and the process environment. Values that
// fail to parse are reported and replaced by their defaults.
func Load(logger *zap.Logger, envFiles ...string) Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := godotenv.Load(envFiles...); err != nil {
		logger.Debug("no .env file loaded, using environment variables", zap.Error(err))
	}

	r := reader{logger: logger}
	return Config{
		StorageMode:      r.str("STORAGE_MODE", ModeInMemory),
		MongoURL:         r.str("MONGO_URL", "mongodb://localhost:27017"),
		MongoDBName:      r.str("MONGO_DB_NAME", "microblog"),
		MySQLDSN:         r.str("MYSQL_DSN", ""),
		RedisURL:         r.str("REDIS_URL", "localhost:6379"),
		RedisTimeout:     r.duration("REDIS_TIMEOUT", 500*time.Millisecond),
		PostCacheTTL:     r.duration("POST_CACHE_TTL", 10*time.Minute),
		TimelineKey:      r.str("TIMELINE_KEY", "tl:global"),
		TimelineCapacity: r.positiveInt("TIMELINE_CAPACITY", 50),
		DefaultLimit:     r.positiveInt("TIMELINE_DEFAULT_LIMIT", 50),
		MaxLimit:         r.positiveInt("TIMELINE_MAX_LIMIT", 50),
		HTTPAddr:         r.str("HTTP_ADDR", "0.0.0.0:8080"),
		LogDevelopment:   r.boolean("LOG_DEVELOPMENT", false),
	}
}

type reader struct {
	logger *zap.Logger
}

func (r reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r reader) positiveInt(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		r.logger.Warn("invalid positive integer, using default", zap.String("key", key), zap.String("value", raw), zap.Int("default", def))
		return def
	}
	return v
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		r.logger.Warn("invalid duration, using default", zap.String("key", key), zap.String("value", raw), zap.Duration("default", def))
		return def
	}
	return v
}

func (r reader) boolean(key string, def bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.logger.Warn("invalid boolean, using default", zap.String("key", key), zap.String("value", raw), zap.Bool("default", def))
		return def
	}
	return v
}
