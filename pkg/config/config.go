package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
	RefreshDays int    `mapstructure:"refresh_days"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type SlipConfig struct {
	Dir           string  `mapstructure:"dir"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Slip     SlipConfig     `mapstructure:"slip"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load reads config.yaml (optional) and SHOMITI_* environment overrides,
// e.g. SHOMITI_DATABASE_DSN or SHOMITI_JWT_SECRET. Call once at startup.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		v.SetDefault("server.addr", ":8081")
		v.SetDefault("server.mode", "debug")
		v.SetDefault("database.auto_migrate", true)
		v.SetDefault("jwt.secret", "dev-insecure-secret-change")
		v.SetDefault("jwt.expire_hours", 24)
		v.SetDefault("jwt.refresh_days", 30)
		v.SetDefault("security.bcrypt_cost", 10)
		v.SetDefault("slip.dir", "slips")
		v.SetDefault("slip.min_confidence", 0.15)

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		v.SetEnvPrefix("SHOMITI")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if readErr := v.ReadInConfig(); readErr != nil {
			// a config file is optional; env + defaults must be enough
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok && path != "" {
				err = fmt.Errorf("read config: %w", readErr)
				return
			}
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}
		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration.
func Get() *Config { return appConfig }
