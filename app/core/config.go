package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr     string      `toml:"addr"`
	Log      Log         `toml:"log"`
	Postgres PGConfig    `toml:"postgres"`
	Redis    RedisConfig `toml:"redis"`

	// UserDataDir 存放 provider 配置和生成文件，默认 ./user_data
	UserDataDir string `toml:"user_data_dir"`

	// SessionTTLHours 空置占位会话保留时长（小时），默认 24
	SessionTTLHours int `toml:"session_ttl_hours"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("ATELIER_API_SERVICE_ADDRESS")
	c.UserDataDir = os.Getenv("ATELIER_USER_DATA_DIR")
	if ttlStr := os.Getenv("ATELIER_SESSION_TTL_HOURS"); ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			c.SessionTTLHours = ttl
		}
	}
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
}

func (c CoreConfig) ResolveUserDataDir() string {
	if c.UserDataDir != "" {
		return c.UserDataDir
	}
	return "./user_data"
}

// ProvidersConfigPath provider 配置文件位置，可被 CONFIG_PATH 覆盖
func (c CoreConfig) ProvidersConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join(c.ResolveUserDataDir(), "config.toml")
}

func (c CoreConfig) FilesDir() string {
	return filepath.Join(c.ResolveUserDataDir(), "files")
}

// SessionTTL 空置占位会话的保留时长
func (c CoreConfig) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return time.Hour * 24
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("ATELIER_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("ATELIER_REDIS_ADDR")
	r.Password = os.Getenv("ATELIER_REDIS_PASSWORD")
	if dbStr := os.Getenv("ATELIER_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("ATELIER_API_LOG_LEVEL")
	l.Path = os.Getenv("ATELIER_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
