package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go-pinboard/pkg/config"
	"go-pinboard/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	path := flag.String("path", "./migrations", "migrations directory")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := config.Init(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GlobalConfig
	if err := logger.InitLogger(cfg.Log.Level, false); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	dbURL, err := databaseURL(cfg.Database)
	if err != nil {
		logger.L.Fatal("Invalid database config", zap.Error(err))
	}

	m, err := migrate.New("file://"+*path, dbURL)
	if err != nil {
		logger.L.Fatal("Migration init failed", zap.Error(err))
	}
	defer m.Close()
	m.Log = migrateLogger{}

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.L.Fatal("Migrate up failed", zap.Error(err))
		}
		logger.L.Info("Migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				logger.L.Fatal("Invalid steps argument", zap.String("steps", args[1]))
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.L.Fatal("Migrate down failed", zap.Error(err))
		}
		logger.L.Info("Migrations rolled back", zap.Int("steps", steps))

	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logger.L.Fatal("Failed to read version", zap.Error(err))
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			logger.L.Fatal("force: version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			logger.L.Fatal("force: invalid version", zap.String("version", args[1]))
		}
		if err := m.Force(v); err != nil {
			logger.L.Fatal("Force failed", zap.Error(err))
		}
		logger.L.Info("Migration version forced", zap.Int("version", v))

	default:
		usage()
		os.Exit(1)
	}
}

// golang-migrate 需要 mysql:// 前缀, 并且迁移文件里有多条语句
func databaseURL(cfg config.DatabaseConfig) (string, error) {
	if cfg.Driver != "mysql" && cfg.Driver != "" {
		return "", fmt.Errorf("migrations only support mysql, got %q", cfg.Driver)
	}
	dsn := cfg.DSN
	if !strings.Contains(dsn, "multiStatements=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "multiStatements=true"
	}
	return "mysql://" + dsn, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	logger.L.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrateLogger) Verbose() bool { return false }

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-path dir] <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version (clears dirty state)

The database DSN is read from config/config.yaml (APP_DATABASE_DSN overrides it).`)
}
