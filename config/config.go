// Package config loads the run configuration from defaults, an optional
// config file, PARKING_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/sim"
	"github.com/zeu5/self-parking/util"
)

const EnvPrefix = "PARKING"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" json:"logger"`
	Agent    AgentConfig    `mapstructure:"agent" json:"agent"`
	Reward   RewardConfig   `mapstructure:"reward" json:"reward"`
	Feedback FeedbackConfig `mapstructure:"feedback" json:"feedback"`
	World    WorldConfig    `mapstructure:"world" json:"world"`
	Run      RunConfig      `mapstructure:"run" json:"run"`
	Store    StoreConfig    `mapstructure:"store" json:"store"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Format      string `mapstructure:"format" json:"format"`
	AddSource   bool   `mapstructure:"add_source" json:"add_source"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	LogFile     string `mapstructure:"log_file" json:"log_file"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress"`
}

type AgentConfig struct {
	MoveSpeed       float64       `mapstructure:"move_speed" json:"move_speed"`
	TurnSpeed       float64       `mapstructure:"turn_speed" json:"turn_speed"`
	TickDuration    time.Duration `mapstructure:"tick_duration" json:"tick_duration"`
	MaxSteps        int           `mapstructure:"max_steps" json:"max_steps"`
	PolicyInputSize int           `mapstructure:"policy_input_size" json:"policy_input_size"`
}

type RewardConfig struct {
	StepPenalty      float64 `mapstructure:"step_penalty" json:"step_penalty"`
	CollisionPenalty float64 `mapstructure:"collision_penalty" json:"collision_penalty"`
	SuccessBonus     float64 `mapstructure:"success_bonus" json:"success_bonus"`
}

type ColorConfig struct {
	R float64 `mapstructure:"r" json:"r"`
	G float64 `mapstructure:"g" json:"g"`
	B float64 `mapstructure:"b" json:"b"`
	A float64 `mapstructure:"a" json:"a"`
}

func (c ColorConfig) Color() agent.Color {
	return agent.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

type FeedbackConfig struct {
	FlashDelay   time.Duration `mapstructure:"flash_delay" json:"flash_delay"`
	AlertColor   ColorConfig   `mapstructure:"alert_color" json:"alert_color"`
	SuccessColor ColorConfig   `mapstructure:"success_color" json:"success_color"`
}

// PlacementConfig is a planar pose: a point on the floor and a heading in
// degrees about the up axis.
type PlacementConfig struct {
	X   float64 `mapstructure:"x" json:"x"`
	Z   float64 `mapstructure:"z" json:"z"`
	Yaw float64 `mapstructure:"yaw" json:"yaw"`
}

func (p PlacementConfig) Pose() agent.Pose {
	return agent.Pose{Position: r3.Vec{X: p.X, Z: p.Z}, Rotation: agent.Yaw(p.Yaw)}
}

type WorldConfig struct {
	HalfWidth  float64         `mapstructure:"half_width" json:"half_width"`
	HalfDepth  float64         `mapstructure:"half_depth" json:"half_depth"`
	CarRadius  float64         `mapstructure:"car_radius" json:"car_radius"`
	SpotRadius float64         `mapstructure:"spot_radius" json:"spot_radius"`
	Mass       float64         `mapstructure:"mass" json:"mass"`
	Drag       float64         `mapstructure:"drag" json:"drag"`
	Spawn      PlacementConfig `mapstructure:"spawn" json:"spawn"`
	Target     PlacementConfig `mapstructure:"target" json:"target"`
	FloorColor ColorConfig     `mapstructure:"floor_color" json:"floor_color"`
	CarColor   ColorConfig     `mapstructure:"car_color" json:"car_color"`
}

type RunConfig struct {
	Policies               []string      `mapstructure:"policies" json:"policies"`
	NumRuns                int           `mapstructure:"num_runs" json:"num_runs"`
	Episodes               int           `mapstructure:"episodes" json:"episodes"`
	Horizon                int           `mapstructure:"horizon" json:"horizon"`
	Parallelism            int           `mapstructure:"parallelism" json:"parallelism"`
	EpisodeTimeout         time.Duration `mapstructure:"episode_timeout" json:"episode_timeout"`
	MaxConsecutiveErrors   int           `mapstructure:"max_consecutive_errors" json:"max_consecutive_errors"`
	MaxConsecutiveTimeouts int           `mapstructure:"max_consecutive_timeouts" json:"max_consecutive_timeouts"`
	// TickRate paces each environment in ticks per second, 0 runs as fast as possible.
	TickRate       float64       `mapstructure:"tick_rate" json:"tick_rate"`
	PrintFrequency time.Duration `mapstructure:"print_frequency" json:"print_frequency"`
	SavePath       string        `mapstructure:"save_path" json:"save_path"`
	TraceFrom      int           `mapstructure:"trace_from" json:"trace_from"`
	Debug          bool          `mapstructure:"debug" json:"debug"`
	// InputScript is a recorded drive replayed by the input policy.
	InputScript string `mapstructure:"input_script" json:"input_script"`
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

func SetDefaults(v *viper.Viper) {
	def := agent.DefaultConfig()
	world := sim.DefaultConfig()

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "parking")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Agent --
	v.SetDefault("agent.move_speed", def.MoveSpeed)
	v.SetDefault("agent.turn_speed", def.TurnSpeed)
	v.SetDefault("agent.tick_duration", def.TickDuration)
	v.SetDefault("agent.max_steps", def.MaxSteps)
	v.SetDefault("agent.policy_input_size", def.PolicyInputSize)

	// -- Reward --
	v.SetDefault("reward.step_penalty", def.StepPenalty)
	v.SetDefault("reward.collision_penalty", def.CollisionPenalty)
	v.SetDefault("reward.success_bonus", def.SuccessBonus)

	// -- Feedback --
	v.SetDefault("feedback.flash_delay", def.FlashDelay)
	setColorDefault(v, "feedback.alert_color", def.AlertColor)
	setColorDefault(v, "feedback.success_color", def.SuccessColor)

	// -- World --
	v.SetDefault("world.half_width", world.HalfWidth)
	v.SetDefault("world.half_depth", world.HalfDepth)
	v.SetDefault("world.car_radius", world.CarRadius)
	v.SetDefault("world.spot_radius", world.SpotRadius)
	v.SetDefault("world.mass", world.Mass)
	v.SetDefault("world.drag", world.Drag)
	v.SetDefault("world.spawn.x", world.Spawn.Position.X)
	v.SetDefault("world.spawn.z", world.Spawn.Position.Z)
	v.SetDefault("world.spawn.yaw", 0.0)
	v.SetDefault("world.target.x", world.Target.Position.X)
	v.SetDefault("world.target.z", world.Target.Position.Z)
	v.SetDefault("world.target.yaw", 0.0)
	setColorDefault(v, "world.floor_color", world.FloorColor)
	setColorDefault(v, "world.car_color", world.CarColor)

	// -- Run --
	v.SetDefault("run.policies", []string{"random", "seek"})
	v.SetDefault("run.num_runs", 1)
	v.SetDefault("run.episodes", 100)
	v.SetDefault("run.horizon", 3000)
	v.SetDefault("run.parallelism", 2)
	v.SetDefault("run.episode_timeout", time.Minute)
	v.SetDefault("run.max_consecutive_errors", 20)
	v.SetDefault("run.max_consecutive_timeouts", 20)
	v.SetDefault("run.tick_rate", 0.0)
	v.SetDefault("run.print_frequency", 100*time.Millisecond)
	v.SetDefault("run.save_path", "results")
	v.SetDefault("run.trace_from", 0)
	v.SetDefault("run.debug", false)
	v.SetDefault("run.input_script", "")

	// -- Store --
	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", "parking.db")
}

func setColorDefault(v *viper.Viper, key string, c agent.Color) {
	v.SetDefault(key+".r", c.R)
	v.SetDefault(key+".g", c.G)
	v.SetDefault(key+".b", c.B)
	v.SetDefault(key+".a", c.A)
}

func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Load applies defaults and environment overrides to v, reads the config
// file at configPath when it is not empty and returns the validated result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}
	return NewConfigFromViper(v)
}

func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.AgentConfig().Validate(); err != nil {
		return err
	}
	if len(c.Run.Policies) == 0 {
		return fmt.Errorf("%w: run.policies must name at least one policy", ErrInvalid)
	}
	if c.Run.Episodes <= 0 {
		return fmt.Errorf("%w: run.episodes must be a positive integer", ErrInvalid)
	}
	if c.Run.NumRuns <= 0 {
		return fmt.Errorf("%w: run.num_runs must be a positive integer", ErrInvalid)
	}
	if c.Run.Parallelism <= 0 {
		return fmt.Errorf("%w: run.parallelism must be a positive integer", ErrInvalid)
	}
	if c.Run.Horizon < 0 || c.Run.TickRate < 0 {
		return fmt.Errorf("%w: run.horizon and run.tick_rate must not be negative", ErrInvalid)
	}
	if c.World.HalfWidth <= 0 || c.World.HalfDepth <= 0 || c.World.Mass <= 0 {
		return fmt.Errorf("%w: world extents and mass must be positive", ErrInvalid)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required when the store is enabled", ErrInvalid)
	}
	return nil
}

// AgentConfig is the controller configuration the agent section and the
// reward and feedback sections describe.
func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		MoveSpeed:        c.Agent.MoveSpeed,
		TurnSpeed:        c.Agent.TurnSpeed,
		TickDuration:     c.Agent.TickDuration,
		StepPenalty:      c.Reward.StepPenalty,
		CollisionPenalty: c.Reward.CollisionPenalty,
		SuccessBonus:     c.Reward.SuccessBonus,
		MaxSteps:         c.Agent.MaxSteps,
		FlashDelay:       c.Feedback.FlashDelay,
		AlertColor:       c.Feedback.AlertColor.Color(),
		SuccessColor:     c.Feedback.SuccessColor.Color(),
		PolicyInputSize:  c.Agent.PolicyInputSize,
	}
}

func (c *Config) WorldConfig() sim.Config {
	return sim.Config{
		HalfWidth:  c.World.HalfWidth,
		HalfDepth:  c.World.HalfDepth,
		CarRadius:  c.World.CarRadius,
		SpotRadius: c.World.SpotRadius,
		Mass:       c.World.Mass,
		Drag:       c.World.Drag,
		Spawn:      c.World.Spawn.Pose(),
		Target:     c.World.Target.Pose(),
		FloorColor: c.World.FloorColor.Color(),
		CarColor:   c.World.CarColor.Color(),
	}
}

// RunConfig is the experiment runner configuration. Progress goes to out.
func (c *Config) RunConfig(logger *zap.Logger, out io.Writer) *core.RunConfig {
	return &core.RunConfig{
		Episodes:                     c.Run.Episodes,
		Horizon:                      c.Run.Horizon,
		EpisodeTimeout:               c.Run.EpisodeTimeout,
		ThresholdConsecutiveErrors:   c.Run.MaxConsecutiveErrors,
		ThresholdConsecutiveTimeouts: c.Run.MaxConsecutiveTimeouts,
		TickRate:                     c.Run.TickRate,
		PrintFrequency:               c.Run.PrintFrequency,
		Output:                       out,
		Logger:                       logger,
	}
}

// Record saves the effective configuration next to the results.
func (c *Config) Record() error {
	return util.SaveJson(path.Join(c.Run.SavePath, "config.json"), c)
}
