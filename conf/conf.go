// Package conf loads the TOML configuration of the twheel binary.
package conf

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Duration 支持在toml里写"10ms"这样的时长
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the whole configuration file.
type Config struct {
	Wheel    WheelConfig    `toml:"wheel"`
	Driver   DriverConfig   `toml:"driver"`
	Dispatch DispatchConfig `toml:"dispatch"`
}

// WheelConfig 时间轮配置
type WheelConfig struct {
	InitialTick uint64 `toml:"initial_tick"`
	MaxTimers   int    `toml:"max_timers"` // 0表示不限制
}

// DriverConfig 驱动配置
type DriverConfig struct {
	Resolution Duration `toml:"resolution"` // 每个tick的时长
}

// DispatchConfig 任务分发配置
type DispatchConfig struct {
	Workers   int    `toml:"workers"`    // 0表示在驱动goroutine里执行
	MachineID uint16 `toml:"machine_id"` // sonyflake机器号
}

// Default new a config with specified default value.
func Default() *Config {
	return &Config{
		Driver: DriverConfig{
			Resolution: Duration{10 * time.Millisecond},
		},
		Dispatch: DispatchConfig{
			MachineID: 1,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode parses data over the defaults.
func Decode(data string) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
