package db

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go-pinboard/internal/model"
	"go-pinboard/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// 所有时间统一存 UTC, 精确到毫秒 (MySQL datetime(3))
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql", "":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// 查不到记录是正常的业务结果 (例如注册时检查邮箱), 不当作错误输出
func newGormLogger(w io.Writer) gormlogger.Interface {
	return gormlogger.New(log.New(w, "\r\n", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open 打开数据库连接并执行自动迁移, 不修改全局 DB
func Open(driver, dsn string) (*gorm.DB, error) {
	return open(driver, dsn, newGormLogger(os.Stdout))
}

func open(driver, dsn string, l gormlogger.Interface) (*gorm.DB, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(d, &gorm.Config{
		NowFunc: now,
		Logger:  l,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite" {
		// 外键检查通过 DSN 的 _foreign_keys=on 打开。
		// sqlite 单写者, 只保留一个连接避免 "database is locked"
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := conn.AutoMigrate(&model.User{}, &model.Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return conn, nil
}

// 初始化全局数据库连接
func InitDB(driver, dsn string) error {
	conn, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = conn

	logger.L.Info("Database connected and migrated successfully", zap.String("driver", driver))
	return nil
}
