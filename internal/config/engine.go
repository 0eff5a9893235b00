package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig tunes the usage engine and can be changed without a restart.
type EngineConfig struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
}

type SimulationConfig struct {
	MinLiters   float64 `mapstructure:"minLiters"`
	MaxLiters   float64 `mapstructure:"maxLiters"`
	DefaultDays int     `mapstructure:"defaultDays"`
	MaxDays     int     `mapstructure:"maxDays"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Simulation: SimulationConfig{
			MinLiters:   150,
			MaxLiters:   250,
			DefaultDays: 7,
			MaxDays:     365,
		},
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewStaticEngineConfigHolder wraps a fixed config, mostly for tests.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("aquaalerts")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/aquaalerts")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AQUAALERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.simulation.minLiters", defaults.Simulation.MinLiters)
	v.SetDefault("engine.simulation.maxLiters", defaults.Simulation.MaxLiters)
	v.SetDefault("engine.simulation.defaultDays", defaults.Simulation.DefaultDays)
	v.SetDefault("engine.simulation.maxDays", defaults.Simulation.MaxDays)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg EngineConfig
	if err := v.UnmarshalKey("engine", &cfg); err != nil {
		return nil, err
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticEngineConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EngineConfig
		if err := v.UnmarshalKey("engine", &updated); err != nil {
			log.Printf("[engine-config] reload failed: %v", err)
			return
		}
		if err := validateEngineConfig(updated); err != nil {
			log.Printf("[engine-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[engine-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	if h == nil {
		return DefaultEngineConfig()
	}
	cfg, ok := h.current.Load().(EngineConfig)
	if !ok {
		return DefaultEngineConfig()
	}
	return cfg
}

func validateEngineConfig(cfg EngineConfig) error {
	sim := cfg.Simulation
	if sim.MinLiters < 0 {
		return errors.New("engine.simulation.minLiters cannot be negative")
	}
	if sim.MaxLiters <= sim.MinLiters {
		return errors.New("engine.simulation.maxLiters must be greater than minLiters")
	}
	if sim.DefaultDays <= 0 {
		return errors.New("engine.simulation.defaultDays must be positive")
	}
	if sim.MaxDays < sim.DefaultDays {
		return errors.New("engine.simulation.maxDays cannot be less than defaultDays")
	}
	return nil
}
