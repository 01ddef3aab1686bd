package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Channel  ChannelConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type UpstreamConfig struct {
	BaseURL string
	// Timeout bounds every outbound command request.
	Timeout time.Duration
}

type ChannelConfig struct {
	URL          string
	KitchenRoom  string
	DialTimeout  time.Duration
	MinReconnect time.Duration
	MaxReconnect time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("UPSTREAM_BASE_URL", "http://localhost:3001")
	viper.SetDefault("UPSTREAM_TIMEOUT", "10s")
	viper.SetDefault("CHANNEL_URL", "ws://localhost:5000/ws")
	viper.SetDefault("CHANNEL_KITCHEN_ROOM", "kitchen")
	viper.SetDefault("CHANNEL_DIAL_TIMEOUT", "5s")
	viper.SetDefault("CHANNEL_MIN_RECONNECT", "500ms")
	viper.SetDefault("CHANNEL_MAX_RECONNECT", "30s")
	viper.SetDefault("CHANNEL_WRITE_TIMEOUT", "5s")
	viper.SetDefault("LOG_LEVEL", "info")

	upstreamTimeout, err := time.ParseDuration(viper.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	dialTimeout, err := time.ParseDuration(viper.GetString("CHANNEL_DIAL_TIMEOUT"))
	if err != nil {
		return nil, err
	}
	minReconnect, err := time.ParseDuration(viper.GetString("CHANNEL_MIN_RECONNECT"))
	if err != nil {
		return nil, err
	}
	maxReconnect, err := time.ParseDuration(viper.GetString("CHANNEL_MAX_RECONNECT"))
	if err != nil {
		return nil, err
	}
	writeTimeout, err := time.ParseDuration(viper.GetString("CHANNEL_WRITE_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Upstream: UpstreamConfig{
			BaseURL: viper.GetString("UPSTREAM_BASE_URL"),
			Timeout: upstreamTimeout,
		},
		Channel: ChannelConfig{
			URL:          viper.GetString("CHANNEL_URL"),
			KitchenRoom:  viper.GetString("CHANNEL_KITCHEN_ROOM"),
			DialTimeout:  dialTimeout,
			MinReconnect: minReconnect,
			MaxReconnect: maxReconnect,
			WriteTimeout: writeTimeout,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
