package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	birthday "github.com/GalaxyPoke/PlayerBirthdayPerks"
)

// envPrefix namespaces the daemon's environment overrides, e.g.
// BIRTHDAY_STORE_HOST maps onto store.host.
const envPrefix = "BIRTHDAY_"

type daemonConfig struct {
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Store struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`

		PoolMaxOpen int           `yaml:"poolMaxOpen"`
		PoolMaxIdle int           `yaml:"poolMaxIdle"`
		ConnTimeout time.Duration `yaml:"connTimeout"`
		OpTimeout   time.Duration `yaml:"opTimeout"`
	} `yaml:"store"`

	Cache struct {
		TTL     time.Duration `yaml:"ttl"`
		MaxSize int           `yaml:"maxSize"`
	} `yaml:"cache"`

	Rules struct {
		AllowModify        bool `yaml:"allowModify"`
		ModifyLimitPerYear int  `yaml:"modifyLimitPerYear"`
		ClaimWindowDays    int  `yaml:"claimWindowDays"`
		UpcomingDays       int  `yaml:"upcomingDays"`
	} `yaml:"rules"`

	Announce struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"announce"`
}

// loadConfig reads the YAML file at path, then layers BIRTHDAY_* environment
// variables on top. A missing file is fine when overrides supply everything.
func loadConfig(path string) (*daemonConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, envPrefix)
			key = strings.ReplaceAll(strings.ToLower(key), "_", ".")
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := defaultDaemonConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func defaultDaemonConfig() *daemonConfig {
	cfg := &daemonConfig{}
	cfg.Log.Level = "info"
	cfg.Store.Backend = string(birthday.BackendSQLite)
	rules := birthday.DefaultRules()
	cfg.Rules.AllowModify = rules.AllowModify
	cfg.Rules.ModifyLimitPerYear = rules.ModifyLimitPerYear
	cfg.Rules.ClaimWindowDays = rules.ClaimWindowDays
	cfg.Rules.UpcomingDays = rules.UpcomingDays
	cfg.Announce.Interval = time.Hour
	return cfg
}

func (c *daemonConfig) storeConfig() birthday.StoreConfig {
	return birthday.StoreConfig{
		Backend:     birthday.Backend(c.Store.Backend),
		Path:        c.Store.Path,
		Host:        c.Store.Host,
		Port:        c.Store.Port,
		Database:    c.Store.Database,
		Username:    c.Store.Username,
		Password:    c.Store.Password,
		PoolMaxOpen: c.Store.PoolMaxOpen,
		PoolMaxIdle: c.Store.PoolMaxIdle,
		ConnTimeout: c.Store.ConnTimeout,
		OpTimeout:   c.Store.OpTimeout,
	}
}

func (c *daemonConfig) rules() birthday.Rules {
	return birthday.Rules{
		AllowModify:        c.Rules.AllowModify,
		ModifyLimitPerYear: c.Rules.ModifyLimitPerYear,
		ClaimWindowDays:    c.Rules.ClaimWindowDays,
		UpcomingDays:       c.Rules.UpcomingDays,
	}
}
