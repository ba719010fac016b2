package auth

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config — адрес внешнего сервиса аутентификации
type Config struct {
	AuthAddr string `mapstructure:"AUTH"`
}

func NewConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read auth config from %s: %w", path, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal auth config: %w", err)
	}

	if cfg.AuthAddr == "" {
		return nil, fmt.Errorf("auth service address is not configured")
	}

	return &cfg, nil
}
