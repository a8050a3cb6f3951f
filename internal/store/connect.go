package store

import (
	"fmt"
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/zulandar/wapanel/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLDSN builds a go-sql-driver DSN for the configured database.
func MySQLDSN(c config.DatabaseConfig) string {
	dsn := gomysql.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dsn.DBName = c.Name
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// dialector picks the gorm driver for the configured backend.
func dialector(c config.DatabaseConfig) (gorm.Dialector, string, error) {
	switch c.Driver {
	case "", "sqlite":
		return sqlite.Open(c.Path), c.Path, nil
	case "mysql":
		return mysql.Open(MySQLDSN(c)), fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Name), nil
	default:
		return nil, "", fmt.Errorf("store: unsupported driver %q", c.Driver)
	}
}

// Connect opens a gorm connection without migrating.
func Connect(c config.DatabaseConfig) (*gorm.DB, error) {
	d, where, err := dialector(c)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect to %s: %w", where, err)
	}
	return db, nil
}
