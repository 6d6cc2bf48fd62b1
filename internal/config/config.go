// Package config loads firesim settings from YAML, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	Sim    SimConfig    `mapstructure:"sim"`
	UAV    UAVConfig    `mapstructure:"uav"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	API    APIConfig    `mapstructure:"api"`
	Output OutputConfig `mapstructure:"output"`
}

// SimConfig sizes the forest and the run.
type SimConfig struct {
	Seed         int64  `mapstructure:"seed"` // 0 = draw from entropy
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
	UAVs         int    `mapstructure:"uavs"`
	Ignitions    int    `mapstructure:"ignitions"`
	MaxTicks     uint64 `mapstructure:"max_ticks"`
	SpreadEvery  uint64 `mapstructure:"spread_every"`
	BurnTicks    uint64 `mapstructure:"burn_ticks"`
	ReelectEvery uint64 `mapstructure:"reelect_every"`
	// Speed multiplies the real-time tick rate; 0 runs headless as fast as possible.
	Speed float64 `mapstructure:"speed"`
}

// UAVConfig holds the fleet parameters.
type UAVConfig struct {
	CommunicationRange float64 `mapstructure:"communication_range"`
	LinearVelocity     float64 `mapstructure:"linear_velocity"`
	StepToExtinguish   uint64  `mapstructure:"step_to_extinguish"`
	Altitude           float64 `mapstructure:"altitude"`
	AuctionTimeout     uint64  `mapstructure:"auction_timeout"`
	LaunchSpread       float64 `mapstructure:"launch_spread"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: text or json
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DBConfig locates the run store. An empty path disables persistence.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig controls the HTTP observation API. Port 0 disables it.
type APIConfig struct {
	Port     int    `mapstructure:"port"`
	AdminKey string `mapstructure:"admin_key"`
}

// OutputConfig names files written at the end of a run.
type OutputConfig struct {
	GeoJSON string `mapstructure:"geojson"`
}

// Default returns a Config populated with the classic settings.
func Default() *Config {
	return &Config{
		Sim: SimConfig{
			Width:       100,
			Height:      100,
			UAVs:        10,
			Ignitions:   3,
			MaxTicks:    200000,
			SpreadEvery: 50,
			BurnTicks:   3000,
		},
		UAV: UAVConfig{
			CommunicationRange: 60,
			LinearVelocity:     0.02,
			StepToExtinguish:   10,
			Altitude:           10,
			LaunchSpread:       5,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		DB: DBConfig{Path: "data/firesim.db"},
	}
}

// Load reads configuration from path (if non-empty), otherwise from
// FIRESIM_CONFIG or a firesim.yaml in . or ./configs. Environment variables
// use the prefix FIRESIM with `.` replaced by `_`, e.g. FIRESIM_SIM_UAVS=20.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FIRESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Seed defaults so env-only configs work.
	v.SetDefault("sim.seed", cfg.Sim.Seed)
	v.SetDefault("sim.width", cfg.Sim.Width)
	v.SetDefault("sim.height", cfg.Sim.Height)
	v.SetDefault("sim.uavs", cfg.Sim.UAVs)
	v.SetDefault("sim.ignitions", cfg.Sim.Ignitions)
	v.SetDefault("sim.max_ticks", cfg.Sim.MaxTicks)
	v.SetDefault("sim.spread_every", cfg.Sim.SpreadEvery)
	v.SetDefault("sim.burn_ticks", cfg.Sim.BurnTicks)
	v.SetDefault("sim.reelect_every", cfg.Sim.ReelectEvery)
	v.SetDefault("sim.speed", cfg.Sim.Speed)
	v.SetDefault("uav.communication_range", cfg.UAV.CommunicationRange)
	v.SetDefault("uav.linear_velocity", cfg.UAV.LinearVelocity)
	v.SetDefault("uav.step_to_extinguish", cfg.UAV.StepToExtinguish)
	v.SetDefault("uav.altitude", cfg.UAV.Altitude)
	v.SetDefault("uav.auction_timeout", cfg.UAV.AuctionTimeout)
	v.SetDefault("uav.launch_spread", cfg.UAV.LaunchSpread)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("log.max_age_days", cfg.Log.MaxAgeDays)
	v.SetDefault("db.path", cfg.DB.Path)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.admin_key", cfg.API.AdminKey)
	v.SetDefault("output.geojson", cfg.Output.GeoJSON)

	if path == "" {
		path = os.Getenv("FIRESIM_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("firesim")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// A missing file is fine; defaults and env still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		c.Log.Format = "text"
	case "json":
	default:
		return fmt.Errorf("invalid log.format: %q", c.Log.Format)
	}

	if c.Sim.Width <= 0 || c.Sim.Height <= 0 {
		return fmt.Errorf("invalid sim size %dx%d", c.Sim.Width, c.Sim.Height)
	}
	if c.Sim.UAVs <= 0 {
		return fmt.Errorf("invalid sim.uavs: %d", c.Sim.UAVs)
	}
	if c.Sim.Ignitions < 0 {
		return fmt.Errorf("invalid sim.ignitions: %d", c.Sim.Ignitions)
	}
	if c.Sim.Speed < 0 {
		return fmt.Errorf("invalid sim.speed: %v", c.Sim.Speed)
	}
	if c.UAV.CommunicationRange < 0 {
		return fmt.Errorf("invalid uav.communication_range: %v", c.UAV.CommunicationRange)
	}
	if c.UAV.LinearVelocity <= 0 {
		return fmt.Errorf("invalid uav.linear_velocity: %v", c.UAV.LinearVelocity)
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api.port: %d", c.API.Port)
	}
	return nil
}
