package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `yaml:"Server"`
	DB       DBConfig       `yaml:"DB"`
	Redis    RedisConfig    `yaml:"Redis"`
	Worker   WorkerConfig   `yaml:"Worker"`
	Notifier NotifierConfig `yaml:"Notifier"`
	Logger   LoggerConfig   `yaml:"Logger"`
}

type ServerConfig struct {
	Port string `yaml:"port" default:"8080"`
}

type DBConfig struct {
	DatabaseURL        string        `yaml:"databaseURL"`
	MaxOpenConnection  int           `yaml:"maxOpenConnection" default:"15"`
	MaxIdleConnection  int           `yaml:"maxIdleConnection" default:"10"`
	ConnectionLifetime time.Duration `yaml:"connectionLifetime" default:"3600"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WorkerConfig struct {
	LockKey  string        `yaml:"lockKey" default:"payout:lock:due-batch"`
	LockTTL  time.Duration `yaml:"lockTTL" default:"30s"`
	Interval time.Duration `yaml:"interval" default:"15s"`
}

type NotifierConfig struct {
	WebhookURL string `yaml:"webhookURL"`
}

type LoggerConfig struct {
	LoggerLevel string `yaml:"loggerLevel" default:"info"`
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./internal/config")

	viper.SetDefault("Server.port", "8080")
	viper.SetDefault("Redis.addr", "localhost:6379")
	viper.SetDefault("Worker.lockKey", "payout:lock:due-batch")
	viper.SetDefault("Worker.lockTTL", 30*time.Second)
	viper.SetDefault("Worker.interval", 15*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("config file not found, using defaults and environment")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	return &config, nil
}
