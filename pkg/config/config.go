package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	Relay     RelayConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address string
}

type DBConfig struct {
	Driver   string // postgres 或 sqlite
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	SSLMode  string
	TimeZone string
	Path     string // sqlite 檔案路徑
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// 管理員無法自行註冊，啟動時依這組帳密建立
	AdminUsername string
	AdminPassword string
}

// WebSocketConfig 控制每條連線的讀寫行為
type WebSocketConfig struct {
	ReadLimit      int64
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	AllowedOrigins []string // 空的時候不檢查 origin
}

// RelayConfig 控制消息轉發與通知分發
type RelayConfig struct {
	TeachingRoles     []string // 可以接收匿名學生私訊的角色
	AnonymousName     string
	FanoutConcurrency int
	HandlerTimeout    time.Duration
	MaxContentLength  int
}

type LogConfig struct {
	Level string
}

// Load 讀取設定：預設值 < config.yaml < 環境變數
func Load() (*Config, error) {
	// .env 是可選的
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./pkg/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CAMPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "campus")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.path", "campus.db")

	v.SetDefault("auth.jwtsecret", "change-me")
	v.SetDefault("auth.tokenttl", "240h")
	v.SetDefault("auth.adminusername", "")
	v.SetDefault("auth.adminpassword", "")

	v.SetDefault("websocket.readlimit", 4096)
	v.SetDefault("websocket.pongwait", "60s")
	v.SetDefault("websocket.pingperiod", "54s")
	v.SetDefault("websocket.writewait", "10s")
	v.SetDefault("websocket.sendbuffer", 256)
	v.SetDefault("websocket.allowedorigins", []string{})

	v.SetDefault("relay.teachingroles", []string{"Teacher", "HOD", "Program Manager"})
	v.SetDefault("relay.anonymousname", "Anonymous Student")
	v.SetDefault("relay.fanoutconcurrency", 8)
	v.SetDefault("relay.handlertimeout", "10s")
	v.SetDefault("relay.maxcontentlength", 5000)

	v.SetDefault("log.level", "info")
}

// Validate 檢查設定值是否合理
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("postgres host and name are required")
		}
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.Auth.AdminUsername != "" && c.Auth.AdminPassword == "" {
		return fmt.Errorf("admin password is required when admin username is set")
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket timeouts must be positive")
	}
	if c.WebSocket.PingPeriod <= 0 || c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping period must be positive and shorter than pong wait")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}
	if c.Relay.FanoutConcurrency <= 0 {
		return fmt.Errorf("relay fanout concurrency must be positive")
	}
	if c.Relay.HandlerTimeout <= 0 {
		return fmt.Errorf("relay handler timeout must be positive")
	}
	if c.Relay.MaxContentLength <= 0 {
		return fmt.Errorf("relay max content length must be positive")
	}
	if c.Relay.AnonymousName == "" {
		return fmt.Errorf("relay anonymous name cannot be empty")
	}
	return nil
}
