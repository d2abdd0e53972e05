package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper

	mu       sync.Mutex
	onChange []func()
}

func newViper() *Viper {
	v := viper.New()
	for key, value := range Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Viper{v: v}
}

// NewViper loads configuration from pathFile. A missing file is not an
// error: defaults and environment overrides apply. A file that exists is
// watched and reloaded on change.
func NewViper(pathFile string) (*Viper, error) {
	vc := newViper()
	if pathFile == "" {
		return vc, nil
	}

	vc.v.SetConfigFile(pathFile)
	if err := vc.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("config file not found, using defaults", "path", pathFile)
			return vc, nil
		}
		return nil, err
	}

	vc.v.OnConfigChange(func(_ fsnotify.Event) {
		if err := vc.v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "err", err)
			return
		}
		slog.Info("config success reloaded", "path", pathFile)
		vc.notify()
	})
	vc.v.WatchConfig()

	return vc, nil
}

// NewViperFromBytes loads configuration from memory.
// configType should be a format supported by Viper (e.g. "yaml", "json").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	vc := newViper()
	vc.v.SetConfigType(configType)
	if err := vc.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return vc, nil
}

func (vc *Viper) OnChange(fn func()) {
	vc.mu.Lock()
	vc.onChange = append(vc.onChange, fn)
	vc.mu.Unlock()
}

func (vc *Viper) notify() {
	vc.mu.Lock()
	fns := append([]func(){}, vc.onChange...)
	vc.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

func (vc *Viper) GetUint64(key string) uint64 {
	return vc.v.GetUint64(key)
}

func (vc *Viper) GetFloat64(key string) float64 {
	return vc.v.GetFloat64(key)
}

// GetArray returns the value for key split by commas, without empty items.
func (vc *Viper) GetArray(key string) []string {
	var out []string
	for _, s := range strings.Split(vc.v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (vc *Viper) GetMillisecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Millisecond
}

func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	return nil
}
