package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	Metrics         bool // 用户端也挂 /metrics（调度器跑在这个进程）
}
type AdminHTTP struct {
	Host        string
	Port        int
	RequireRole string `mapstructure:"require_role"` // 为空则只校验登录（角色仅作展示）
}

type App struct {
	Name    string
	Env     string
	BaseURL string `mapstructure:"base_url"` // 通知邮件里的登录链接
	HTTP    HTTP
	Admin   AdminHTTP
}

type FileRotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  FileRotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttl_sec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Mail 未启用时通知走日志
type Mail struct {
	Enabled    bool
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	TimeoutSec int `mapstructure:"timeout_sec"`
}

type Scheduler struct {
	Enabled     bool
	Timezone    string
	DueSoonSpec string `mapstructure:"due_soon_spec"`
	OverdueSpec string `mapstructure:"overdue_spec"` // 为空 = 仅手动触发
	WeeklySpec  string `mapstructure:"weekly_spec"`
	Workers     int
}

// Location 解析时区；空或 "Local" 为本地时区
func (s Scheduler) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	Mail      Mail
	Scheduler Scheduler
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "TaskTracker")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.metrics", true)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "tasktracker")
	v.SetDefault("jwt.accesstokenttlmin", 120)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:tasktracker.db?_foreign_keys=on")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl_sec", 300)
	// 未出现在文件里的 key 也要有默认值，APP_ 环境变量才能覆盖
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.timeout_sec", 10)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.due_soon_spec", "0 0 * * * *")
	v.SetDefault("scheduler.overdue_spec", "")
	v.SetDefault("scheduler.weekly_spec", "0 0 9 * * MON")
	v.SetDefault("scheduler.workers", 1)
}

// Read 读取配置文件 + APP_ 前缀环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	// 时区决定“今天”的边界，配错直接启动失败
	if _, err := c.Scheduler.Location(); err != nil {
		return nil, err
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}
