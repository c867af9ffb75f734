// Package config loads the retargeting settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

const (
	CoordinateWorld = "world"
	CoordinateImage = "image"
)

var ErrInvalidCoordinateSpace = errors.New("invalid coordinate space")

type Config struct {
	Pose   PoseConfig   `mapstructure:"pose"`
	Rig    RigConfig    `mapstructure:"rig"`
	Motion MotionConfig `mapstructure:"motion"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// PoseConfig describes the incoming landmarks.
type PoseConfig struct {
	Layout          string  `mapstructure:"layout"`
	CoordinateSpace string  `mapstructure:"coordinate_space"` // world or image
	AspectRatio     float64 `mapstructure:"aspect_ratio"`     // image width / height, image space only
	MinVisibility   float64 `mapstructure:"min_visibility"`   // 0 disables the check
}

type RigConfig struct {
	ShoulderOffset model.Rotation `mapstructure:"shoulder_offset"`
}

type MotionConfig struct {
	Fps             float64 `mapstructure:"fps"`
	MaxKeyframes    int     `mapstructure:"max_keyframes"`   // 0 keeps every frame
	KeyPoseStride   int     `mapstructure:"key_pose_stride"` // 0 or 1 keeps every keyframe
	ReduceTolerance float64 `mapstructure:"reduce_tolerance"`
	Loop            bool    `mapstructure:"loop"`
	Gltf            bool    `mapstructure:"gltf"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	RecordDir string `mapstructure:"record_dir"`
	ReadLimit int64  `mapstructure:"read_limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Pose: PoseConfig{
			Layout:          model.DefaultLayout.String(),
			CoordinateSpace: CoordinateWorld,
			AspectRatio:     1.0,
			MinVisibility:   0,
		},
		Rig: RigConfig{
			ShoulderOffset: model.Rotation{X: -0.4},
		},
		Motion: MotionConfig{
			Fps:             30,
			MaxKeyframes:    30,
			KeyPoseStride:   1,
			ReduceTolerance: 0.01,
			Loop:            true,
			Gltf:            false,
		},
		Server: ServerConfig{
			Addr:      "127.0.0.1:8765",
			RecordDir: "recordings",
			ReadLimit: 1 << 20,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// Load reads path when given, otherwise signtrace.yaml from the working directory
// or ~/.signtrace/signtrace.yaml. A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix("SIGNTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("signtrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".signtrace"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("pose.layout", cfg.Pose.Layout)
	v.SetDefault("pose.coordinate_space", cfg.Pose.CoordinateSpace)
	v.SetDefault("pose.aspect_ratio", cfg.Pose.AspectRatio)
	v.SetDefault("pose.min_visibility", cfg.Pose.MinVisibility)
	v.SetDefault("rig.shoulder_offset.x", cfg.Rig.ShoulderOffset.X)
	v.SetDefault("rig.shoulder_offset.y", cfg.Rig.ShoulderOffset.Y)
	v.SetDefault("rig.shoulder_offset.z", cfg.Rig.ShoulderOffset.Z)
	v.SetDefault("motion.fps", cfg.Motion.Fps)
	v.SetDefault("motion.max_keyframes", cfg.Motion.MaxKeyframes)
	v.SetDefault("motion.key_pose_stride", cfg.Motion.KeyPoseStride)
	v.SetDefault("motion.reduce_tolerance", cfg.Motion.ReduceTolerance)
	v.SetDefault("motion.loop", cfg.Motion.Loop)
	v.SetDefault("motion.gltf", cfg.Motion.Gltf)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.record_dir", cfg.Server.RecordDir)
	v.SetDefault("server.read_limit", cfg.Server.ReadLimit)
	v.SetDefault("log.level", cfg.Log.Level)
}

func (c *Config) Validate() error {
	if _, err := c.Layout(); err != nil {
		return err
	}
	switch c.Pose.CoordinateSpace {
	case CoordinateWorld, CoordinateImage:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCoordinateSpace, c.Pose.CoordinateSpace)
	}
	if c.Pose.AspectRatio <= 0 {
		return fmt.Errorf("aspect_ratio must be positive, got %v", c.Pose.AspectRatio)
	}
	if c.Pose.MinVisibility < 0 || c.Pose.MinVisibility > 1 {
		return fmt.Errorf("min_visibility must be within [0, 1], got %v", c.Pose.MinVisibility)
	}
	if c.Motion.Fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", c.Motion.Fps)
	}
	if c.Motion.MaxKeyframes < 0 || c.Motion.KeyPoseStride < 0 {
		return fmt.Errorf("max_keyframes and key_pose_stride must not be negative")
	}
	if c.Motion.ReduceTolerance < 0 {
		return fmt.Errorf("reduce_tolerance must not be negative, got %v", c.Motion.ReduceTolerance)
	}
	return nil
}

func (c *Config) Layout() (model.LandmarkLayout, error) {
	return model.LookupLayout(c.Pose.Layout)
}
