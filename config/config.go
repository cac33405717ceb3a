// config/config.go
package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Cache         CacheConfiguration    `validate:"required"`
	Token         TokenConfiguration    `validate:"required"`
	Security      SecurityConfiguration `validate:"required"`
	RateLimit     RateLimitConfiguration
	Log           LogConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string `validate:"required"`
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string `validate:"required"`
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection. Timeouts are in
// milliseconds.
type RedisConfiguration struct {
	Addr         string `validate:"required"`
	Password     string
	DB           int   `validate:"gte=0"`
	DialTimeout  int64 `mapstructure:"dialTimeout" validate:"gte=0"`
	ReadTimeout  int64 `mapstructure:"readTimeout" validate:"gte=0"`
	WriteTimeout int64 `mapstructure:"writeTimeout" validate:"gte=0"`
	PoolSize     int   `mapstructure:"poolSize" validate:"gte=0"`
	PoolTimeout  int64 `mapstructure:"poolTimeout" validate:"gte=0"`
}

// ElasticsearchConfiguration stores data for Elasticsearch connection.
// An empty URL disables the audit log.
type ElasticsearchConfiguration struct {
	URL string
}

// CacheConfiguration holds the privilege cache settings. Durations are in
// milliseconds.
type CacheConfiguration struct {
	GroupTTL        int64 `mapstructure:"groupTTL" validate:"gt=0"`
	UserTTL         int64 `mapstructure:"userTTL" validate:"gt=0"`
	SweepInterval   int64 `mapstructure:"sweepInterval" validate:"gte=0"`
	MaxGroupEntries int   `mapstructure:"maxGroupEntries" validate:"gt=0"`
	MaxUserEntries  int   `mapstructure:"maxUserEntries" validate:"gt=0"`
	LoadTimeout     int64 `mapstructure:"loadTimeout" validate:"gt=0"`
}

// TokenConfiguration holds the access token settings. Durations are in
// milliseconds.
type TokenConfiguration struct {
	Lifetime      int64  `mapstructure:"lifetime" validate:"gt=0"`
	Store         string `mapstructure:"store" validate:"oneof=redis memory"`
	SweepInterval int64  `mapstructure:"sweepInterval" validate:"gte=0"`
	LookupTimeout int64  `mapstructure:"lookupTimeout" validate:"gt=0"`
}

type SecurityConfiguration struct {
	MaxFailedLogins int      `mapstructure:"maxFailedLogins" validate:"gt=0"`
	AnonymousGroup  string   `mapstructure:"anonymousGroup" validate:"required"`
	AvailableRoles  []string `mapstructure:"availableRoles"`
}

type RateLimitConfiguration struct {
	Requests int   `mapstructure:"requests" validate:"gte=0"`
	Window   int64 `mapstructure:"window" validate:"gte=0"`
}

type LogConfiguration struct {
	Dir string
}

var config *Configuration

func InitConfig() error {
	return InitConfigFrom("config")
}

// InitConfigFrom loads config.yaml from dir, layering environment variables
// and an optional .env file on top of the defaults.
func InitConfigFrom(dir string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring unreadable .env file: %v", err)
	}

	viper.AddConfigPath(dir)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	var loaded Configuration
	if err := viper.Unmarshal(&loaded); err != nil {
		return err
	}
	if err := Validate(&loaded); err != nil {
		return err
	}
	config = &loaded

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dialTimeout", 5000)
	viper.SetDefault("redis.readTimeout", 3000)
	viper.SetDefault("redis.writeTimeout", 3000)
	viper.SetDefault("redis.poolSize", 10)
	viper.SetDefault("redis.poolTimeout", 4000)
	viper.SetDefault("elasticsearch.url", "")

	viper.SetDefault("cache.groupTTL", 5*60*1000)
	viper.SetDefault("cache.userTTL", 5*60*1000)
	viper.SetDefault("cache.sweepInterval", 60*1000)
	viper.SetDefault("cache.maxGroupEntries", 100)
	viper.SetDefault("cache.maxUserEntries", 1000)
	viper.SetDefault("cache.loadTimeout", 5000)

	viper.SetDefault("token.lifetime", 15*60*1000)
	viper.SetDefault("token.store", "redis")
	viper.SetDefault("token.sweepInterval", 60*1000)
	viper.SetDefault("token.lookupTimeout", 2000)

	viper.SetDefault("security.maxFailedLogins", 5)
	viper.SetDefault("security.anonymousGroup", "anonymous")
	viper.SetDefault("security.availableRoles", []string{"administrator", "user"})

	viper.SetDefault("ratelimit.requests", 100)
	viper.SetDefault("ratelimit.window", 60*1000)

	viper.SetDefault("log.dir", "logging")
}

// Validate checks struct-level constraints on a loaded configuration.
func Validate(c *Configuration) error {
	return validator.New().Struct(c)
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// Millis converts a millisecond option into a duration.
func Millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDurationMillis retrieves a millisecond option as a duration
func GetDurationMillis(key string) time.Duration {
	return Millis(viper.GetInt64(key))
}
