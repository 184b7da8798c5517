package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server Server
	Mongo  Mongo
	Redis  Redis
	Sweep  Sweep
	Logger Logger
}

type Server struct {
	Addr string
}

type Mongo struct {
	URI      string
	Database string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Sweep struct {
	// Interval between sweep passes over collected messages.
	Interval time.Duration
	// Grace is how long a collected message survives before removal.
	Grace time.Duration
}

type Logger struct {
	Development bool
	Level       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "localhost:9090")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "pgprelay")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sweep.interval", time.Minute)
	v.SetDefault("sweep.grace", time.Duration(0))
	v.SetDefault("logger.development", false)
	v.SetDefault("logger.level", "info")
}

// Load reads config/<filename>.yaml, falling back to defaults when the file
// is absent.
func Load(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
