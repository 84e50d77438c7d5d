package storage

import (
	"fmt"

	"campus_relay/pkg/config"
)

// Open 依照設定選擇資料庫驅動
func Open(cfg config.DBConfig) (*DB, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresDB(PostgresConfig{
			Host:     cfg.Host,
			User:     cfg.User,
			Password: cfg.Password,
			Name:     cfg.Name,
			Port:     cfg.Port,
			SSLMode:  cfg.SSLMode,
			TimeZone: cfg.TimeZone,
		})
	case "sqlite":
		return NewSQLiteDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
