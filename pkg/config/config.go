package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Messaging MessagingConfig `mapstructure:"messaging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // gin: debug / release / test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mysql / sqlite
	DSN    string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

type StorageConfig struct {
	Provider string      `mapstructure:"provider"` // local / s3
	Local    LocalConfig `mapstructure:"local"`
	S3       S3Config    `mapstructure:"s3"`
}

type LocalConfig struct {
	// 上传文件的根目录, 对外以 PublicPrefix 暴露
	BasePath     string `mapstructure:"base_path"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

type S3Config struct {
	Region string `mapstructure:"region"`
	Bucket string `mapstructure:"bucket"`
	// 自定义 endpoint (例如 MinIO), 为空时使用 AWS 默认地址
	Endpoint  string `mapstructure:"endpoint"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type MessagesConfig struct {
	MaxContentLength int   `mapstructure:"max_content_length"`
	MaxVideoSize     int64 `mapstructure:"max_video_size"`
	// 0 表示图片不限制大小
	MaxImageSize   int64 `mapstructure:"max_image_size"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type MessagingConfig struct {
	Provider string      `mapstructure:"provider"` // none / kafka
	Kafka    KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

var GlobalConfig Config

// 默认值, 配置文件中缺省的键使用这些值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local.base_path", "uploads")
	v.SetDefault("storage.local.public_prefix", "/uploads")
	v.SetDefault("messages.max_content_length", 2000)
	v.SetDefault("messages.max_video_size", 20*1024*1024)
	v.SetDefault("messages.max_image_size", 0)
	v.SetDefault("messages.max_upload_bytes", 40*1024*1024)
	v.SetDefault("messaging.provider", "none")
	v.SetDefault("messaging.kafka.topic_prefix", "pinboard")
}

// 项目根目录下的 config 目录
func configDir() string {
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	return filepath.Join(basepath, "config")
}

func load(name string) error {
	// .env 可选, 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir())
	v.AddConfigPath("./config")

	// APP_DATABASE_DSN 覆盖 database.dsn
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	GlobalConfig = cfg
	return nil
}

func Init() error {
	return load("config")
}

// 测试用的配置文件
func InitTest() error {
	return load("config.test")
}
