// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the virtsup configuration from defaults, an optional
// YAML file, VIRTSUP_* environment variables and command line flags, with
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aibor/virtsup/internal/qemu"
	"github.com/aibor/virtsup/internal/sys"
)

// EnvPrefix is the prefix of all environment variables. Nested keys are
// separated by underscores, like VIRTSUP_EMULATOR_MEMORY.
const EnvPrefix = "VIRTSUP"

// Limits and defaults.
const (
	CPUDefault = "max"

	MemoryDefault = 256
	MemoryMin     = 128
	MemoryMax     = 16384

	SMPDefault = 1
	SMPMin     = 1
	SMPMax     = 16

	DisplayDefault     = "none"
	ListenDefault      = "127.0.0.1:30040"
	ServerDefault      = "http://127.0.0.1:30040"
	GracePeriodDefault = 10 * time.Second
)

var (
	ErrValueOutOfRange = errors.New("value is outside of range")
	ErrEmptyValue      = errors.New("value must not be empty")
)

// Config is the complete configuration.
type Config struct {
	Emulator    Emulator      `mapstructure:"emulator"     yaml:"emulator"`
	SocketDir   string        `mapstructure:"socket_dir"   yaml:"socket_dir"`
	Listen      string        `mapstructure:"listen"       yaml:"listen"`
	Server      string        `mapstructure:"server"       yaml:"server"`
	GracePeriod time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	Debug       bool          `mapstructure:"debug"        yaml:"debug"`
}

// Emulator configures the QEMU command every virtual machine is launched
// with.
type Emulator struct {
	Arch       sys.Arch `mapstructure:"arch"       yaml:"arch"`
	Executable string   `mapstructure:"executable" yaml:"executable,omitempty"`
	Machine    string   `mapstructure:"machine"    yaml:"machine,omitempty"`
	CPU        string   `mapstructure:"cpu"        yaml:"cpu,omitempty"`
	SMP        uint64   `mapstructure:"smp"        yaml:"smp"`
	Memory     uint64   `mapstructure:"memory"     yaml:"memory"`
	NoKVM      bool     `mapstructure:"nokvm"      yaml:"nokvm"`
	Display    string   `mapstructure:"display"    yaml:"display,omitempty"`
	ExtraArgs  []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
}

// SetDefaults sets the default value for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("emulator.arch", string(sys.Native))
	v.SetDefault("emulator.executable", "")
	v.SetDefault("emulator.machine", "")
	v.SetDefault("emulator.cpu", CPUDefault)
	v.SetDefault("emulator.smp", SMPDefault)
	v.SetDefault("emulator.memory", MemoryDefault)
	v.SetDefault("emulator.nokvm", false)
	v.SetDefault("emulator.display", DisplayDefault)
	v.SetDefault("emulator.extra_args", []string{})
	v.SetDefault("socket_dir", filepath.Join(os.TempDir(), "virtsup"))
	v.SetDefault("listen", ListenDefault)
	v.SetDefault("server", ServerDefault)
	v.SetDefault("grace_period", GracePeriodDefault)
	v.SetDefault("debug", false)
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"arch":         "emulator.arch",
	"qemu-bin":     "emulator.executable",
	"machine":      "emulator.machine",
	"cpu":          "emulator.cpu",
	"smp":          "emulator.smp",
	"memory":       "emulator.memory",
	"nokvm":        "emulator.nokvm",
	"display":      "emulator.display",
	"socket-dir":   "socket_dir",
	"listen":       "listen",
	"server":       "server",
	"grace-period": "grace_period",
	"debug":        "debug",
}

// BindFlags binds all flags of the set that have a configuration key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(flag *pflag.Flag) {
		key, exists := FlagKeys[flag.Name]
		if !exists || err != nil {
			return
		}

		err = v.BindPFlag(key, flag)
	})

	if err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	return nil
}

// New returns a viper instance with defaults and environment variables set
// up. If file is not empty, it is read. Otherwise, the default locations are
// searched and missing files are ignored.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".virtsup")

		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "virtsup"))
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

// Load decodes and validates the configuration.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values for consistency.
func (c *Config) Validate() error {
	_, err := c.Emulator.Arch.Emulator()
	if err != nil {
		return fmt.Errorf("emulator.arch: %w", err)
	}

	err = checkRange(c.Emulator.SMP, SMPMin, SMPMax)
	if err != nil {
		return fmt.Errorf("emulator.smp: %w", err)
	}

	err = checkRange(c.Emulator.Memory, MemoryMin, MemoryMax)
	if err != nil {
		return fmt.Errorf("emulator.memory: %w", err)
	}

	if c.GracePeriod <= 0 {
		return fmt.Errorf("grace_period: %s: %w", c.GracePeriod, ErrValueOutOfRange)
	}

	if c.Listen == "" {
		return fmt.Errorf("listen: %w", ErrEmptyValue)
	}

	return nil
}

func checkRange(value, lower, upper uint64) error {
	if value < lower {
		return fmt.Errorf("%d < %d: %w", value, lower, ErrValueOutOfRange)
	}

	if value > upper {
		return fmt.Errorf("%d > %d: %w", value, upper, ErrValueOutOfRange)
	}

	return nil
}

// CommandSpec returns the emulator command template. Disk and ISO are not
// set.
func (c *Config) CommandSpec() (qemu.CommandSpec, error) {
	spec := qemu.CommandSpec{
		Executable: c.Emulator.Executable,
		Machine:    c.Emulator.Machine,
		CPU:        c.Emulator.CPU,
		SMP:        c.Emulator.SMP,
		Memory:     c.Emulator.Memory,
		NoKVM:      c.Emulator.NoKVM,
		Display:    c.Emulator.Display,
	}

	for _, arg := range c.Emulator.ExtraArgs {
		parsed, err := ParseArgument(arg)
		if err != nil {
			return spec, err
		}

		spec.ExtraArgs = append(spec.ExtraArgs, parsed)
	}

	err := spec.AddDefaultsFor(c.Emulator.Arch)
	if err != nil {
		return spec, fmt.Errorf("emulator defaults: %w", err)
	}

	return spec, nil
}

// ParseArgument parses an extra emulator argument given as "-name value" or
// "-name". The leading dash is optional.
func ParseArgument(arg string) (qemu.Argument, error) {
	name, value, _ := strings.Cut(strings.TrimSpace(arg), " ")
	name = strings.TrimPrefix(name, "-")

	if name == "" {
		return qemu.Argument{}, fmt.Errorf("extra argument %q: %w", arg, ErrEmptyValue)
	}

	return qemu.RepeatableArg(name, strings.TrimSpace(value)), nil
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(c)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close() //nolint:wrapcheck
}
