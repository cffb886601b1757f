// Package config 负责加载服务配置：默认值 -> config.yaml -> .env / 环境变量。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	BasePath string `mapstructure:"base_path" validate:"omitempty,startswith=/"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	GinMode  string `mapstructure:"gin_mode" validate:"omitempty,oneof=debug release test"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=sqlite postgres mysql"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,gt=0,lt=65536"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	ConnectRetries int           `mapstructure:"connect_retries" validate:"gte=1"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	MaxOpenConns   int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// RedisConfig Addr 为空表示不启用缓存
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// 额外允许 Docker 网络 http://172.x.x.x:3000
	AllowDockerNetworks bool `mapstructure:"allow_docker_networks"`
}

// 未配置 host/port/user 时各驱动的缺省值；mysql 沿用旧部署的 3307/root
var driverDefaults = map[string]struct {
	Host string
	Port int
	User string
}{
	"postgres": {"localhost", 5432, "postgres"},
	"mysql":    {"localhost", 3307, "root"},
}

// DataSource 返回驱动对应的 DSN，显式配置的 dsn 优先
func (d DatabaseConfig) DataSource() string {
	if d.DSN != "" {
		return d.DSN
	}
	def := driverDefaults[d.Driver]
	host, port, user := d.Host, d.Port, d.User
	if host == "" {
		host = def.Host
	}
	if port == 0 {
		port = def.Port
	}
	if user == "" {
		user = def.User
	}
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, d.Password, d.Name)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			user, d.Password, host, port, d.Name)
	default:
		return d.Name + ".db?_foreign_keys=on"
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.gin_mode", "release")

	v.SetDefault("database.driver", "sqlite")
	// host/port/user 留空，由 DataSource 按驱动补缺省值
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "taskdb")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.connect_retries", 10)
	v.SetDefault("database.retry_delay", 5*time.Second)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:3002",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3002",
	})
	v.SetDefault("cors.allow_docker_networks", true)
}

// 兼容旧部署里使用的环境变量名
var envAliases = map[string][]string{
	"server.port":              {"PORT"},
	"server.log_level":         {"LOG_LEVEL"},
	"server.gin_mode":          {"GIN_MODE"},
	"database.driver":          {"DB_DRIVER"},
	"database.dsn":             {"DB_DSN"},
	"database.host":            {"DB_HOST"},
	"database.port":            {"DB_PORT"},
	"database.name":            {"DB_NAME"},
	"database.user":            {"DB_USER"},
	"database.password":        {"DB_PASSWORD"},
	"database.connect_retries": {"DB_CONNECT_RETRIES"},
	"database.retry_delay":     {"DB_RETRY_DELAY"},
	"redis.addr":               {"REDIS_ADDR"},
	"redis.password":           {"REDIS_PASSWORD"},
	"cors.allowed_origins":     {"CORS_ORIGINS"},
}

// Load 读取配置。configPath 为空时在当前目录查找 config.yaml（可选）。
func Load(configPath string) (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// sqlite 只用 name；配置了服务器地址多半是忘了设置 driver
	db := cfg.Database
	if db.Driver == "sqlite" && (db.Host != "" || db.Port != 0 || db.User != "") {
		return errors.New("invalid config: database host/port/user are set but database.driver is sqlite; set DB_DRIVER to mysql or postgres")
	}
	return nil
}
