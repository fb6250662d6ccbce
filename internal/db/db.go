package db

import (
	"fmt"
	"path/filepath"
	"time"

	puresqlite "github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite    = "sqlite"     // czyste Go, domyślny
	DriverSQLiteCgo = "sqlite-cgo" // mattn/go-sqlite3
	DriverMySQL     = "mysql"
	DriverPostgres  = "postgres"
)

const DefaultFile = "dodoetl.db"

type Handle struct {
	DB     *gorm.DB
	Driver string
	DSN    string
}

// DefaultDSN: plik sqlite w katalogu aplikacji.
func DefaultDSN(dir string) string {
	return filepath.Join(dir, DefaultFile)
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverSQLite:
		return puresqlite.Open(dsn), nil
	case DriverSQLiteCgo:
		return cgosqlite.Open(dsn), nil
	case DriverMySQL:
		fixed, err := MySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		return mysql.Open(fixed), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// MySQLDSN wymusza parseTime i loc=UTC. Daty w modelach to północ UTC;
// z loc=Local sterownik przesuwa je przy zapisie (na zachód od UTC o dzień).
func MySQLDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Open łączy się z bazą. Dla sqlite dsn to ścieżka pliku.
func Open(driver, dsn string) (*Handle, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Info jeśli chcesz verbose SQL
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "" {
		driver = DriverSQLite
	}
	return &Handle{DB: gdb, Driver: driver, DSN: dsn}, nil
}

func (h *Handle) Close() error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
