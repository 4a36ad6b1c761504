package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Tracing      TracingConfig `mapstructure:"tracing"`
	Log          LogConfig     `mapstructure:"log"`
	Redis        RedisConfig
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Report       ReportConfig       `mapstructure:"report"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig selects the gorm dialector. Driver "sqlite" uses Path and ignores the
// network fields.
type DatabaseConfig struct {
	Driver    string
	Path      string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// PointsConfig is the fixed point value per completion event.
type PointsConfig struct {
	Story      int `mapstructure:"story"`
	Lesson     int `mapstructure:"lesson"`
	QuizPassed int `mapstructure:"quiz_passed"`
	QuizFailed int `mapstructure:"quiz_failed"`
	Game       int `mapstructure:"game"`
}

type GamificationConfig struct {
	Points              PointsConfig `mapstructure:"points"`
	QuizPassPercent     int          `mapstructure:"quiz_pass_percent"`
	LeaderboardLimit    int          `mapstructure:"leaderboard_limit"`
	LeaderboardCacheTTL int          `mapstructure:"leaderboard_cache_seconds"`
}

type ReportConfig struct {
	ActivityPageSize   int `mapstructure:"activity_page_size"`
	CalendarWindowDays int `mapstructure:"calendar_window_days"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.path", "kidquest.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)

	v.SetDefault("jwt.expire_hours", 24)

	v.SetDefault("log.file", "logs/kidquest.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("gamification.points.story", 10)
	v.SetDefault("gamification.points.lesson", 25)
	v.SetDefault("gamification.points.quiz_passed", 15)
	v.SetDefault("gamification.points.quiz_failed", 0)
	v.SetDefault("gamification.points.game", 5)
	v.SetDefault("gamification.quiz_pass_percent", 60)
	v.SetDefault("gamification.leaderboard_limit", 10)
	v.SetDefault("gamification.leaderboard_cache_seconds", 60)

	v.SetDefault("report.activity_page_size", 10)
	v.SetDefault("report.calendar_window_days", 30)
}

func LoadConfig(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("KIDQUEST")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", c.Server.Mode)
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	p := c.Gamification.Points
	if p.Story < 0 || p.Lesson < 0 || p.QuizPassed < 0 || p.QuizFailed < 0 || p.Game < 0 {
		return fmt.Errorf("gamification points must not be negative")
	}
	// 0 会让任何得分都及格
	if c.Gamification.QuizPassPercent < 1 || c.Gamification.QuizPassPercent > 100 {
		return fmt.Errorf("quiz_pass_percent must be within 1-100, got %d", c.Gamification.QuizPassPercent)
	}
	if c.Report.CalendarWindowDays <= 0 {
		return fmt.Errorf("calendar_window_days must be positive")
	}
	return nil
}
