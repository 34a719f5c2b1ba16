// Package config 加载 datastorm 的运行配置。
//
// 优先级（高到低）：命令行参数 > 环境变量 > 配置文件 > 默认值。
// 环境变量使用 DATASTORM_ 前缀，双下划线表示层级：
// DATASTORM_DATABASE__DRIVER=mysql 对应 database.driver。
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	core "datastorm/data/db"
	"datastorm/logging"
	"datastorm/validation"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "DATASTORM_"

// DefaultFiles 未显式指定配置文件时依次查找的文件名
var DefaultFiles = []string{"datastorm.yaml", "datastorm.yml"}

// 日志格式
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
	LogFormatStd  = "std"
)

// Drivers 配置允许的驱动名
var Drivers = []string{"sqlite", "sqlite3", "mysql", "pgx", "postgres", "postgresql"}

// 事件传输
const (
	EventsNone   = "none"
	EventsSync   = "sync"
	EventsMemory = "memory"
	EventsNATS   = "nats"
	EventsRedis  = "redis"
)

// EventsConfig 生命周期事件发布配置；URL 为 NATS 地址或 Redis 地址
type EventsConfig struct {
	Transport string `koanf:"transport"`
	URL       string `koanf:"url"`
	Prefix    string `koanf:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config 运行配置
type Config struct {
	Database core.DBConfig `koanf:"database"`
	Log      LogConfig     `koanf:"log"`
	Events   EventsConfig  `koanf:"events"`

	// File 实际加载的配置文件，未使用文件时为空
	File string `koanf:"-"`
}

// flagKeys 命令行参数名到配置键的映射；未列出的参数不参与配置
var flagKeys = map[string]string{
	"driver":     "database.driver",
	"database":   "database.database",
	"dsn":        "database.dsn",
	"log-level":  "log.level",
	"log-format": "log.format",
	"events":     "events.transport",
	"events-url": "events.url",
}

func defaults() map[string]any {
	return map[string]any{
		"database.driver":         "sqlite",
		"database.database":       "datastorm.db",
		"database.max_open_conns": 10,
		"database.max_idle_conns": 2,
		"database.charset":        "utf8mb4",
		"database.parse_time":     true,
		"log.level":               logging.InfoLevel.String(),
		"log.format":              LogFormatText,
		"events.transport":        EventsNone,
	}
}

func findFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey DATASTORM_DATABASE__MAX_OPEN_CONNS -> database.max_open_conns
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Load 按优先级合并默认值、配置文件、环境变量与 flags（可为 nil）
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验驱动、日志、事件传输配置
func (c *Config) Validate() error {
	if err := validation.ValidateEnum(strings.ToLower(c.Database.Driver), "database.driver", Drivers); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		if err := validation.ValidateRequired(c.Database.Database, "database.database"); err != nil {
			return err
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return validation.NewValidationError(err.Error())
	}
	if err := validation.ValidateEnum(c.Log.Format, "log.format", []string{LogFormatText, LogFormatJSON, LogFormatStd}); err != nil {
		return err
	}
	if err := validation.ValidateEnum(c.Events.Transport, "events.transport",
		[]string{EventsNone, EventsSync, EventsMemory, EventsNATS, EventsRedis}); err != nil {
		return err
	}
	if c.Events.Transport == EventsRedis {
		return validation.ValidateRequired(c.Events.URL, "events.url")
	}
	return nil
}

// Logger 按配置构建日志器，输出到 w
func (c *Config) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	switch c.Log.Format {
	case LogFormatJSON:
		return logging.NewSlogJSON(w, level), nil
	case LogFormatStd:
		return logging.NewStdLogger("datastorm").WithLevel(level), nil
	default:
		return logging.NewSlogText(w, level), nil
	}
}
