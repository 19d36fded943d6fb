package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Registry RegistryConfig `mapstructure:"registry"`
	Indexer  IndexerConfig  `mapstructure:"indexer"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite 数据库文件路径
}

// DSN 根据驱动生成连接串
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// ChainConfig 本地开发链配置
type ChainConfig struct {
	ChainId        int64  `mapstructure:"chain_id"`        // 链ID
	DevAccounts    int    `mapstructure:"dev_accounts"`    // 预置开发账户数量
	InitialBalance string `mapstructure:"initial_balance"` // 每个开发账户的初始余额 (wei)
}

// RegistryConfig 项目注册合约配置
type RegistryConfig struct {
	ListingFee string `mapstructure:"listing_fee"` // 上架费用 (wei)
}

// IndexerConfig 链上事件索引配置
type IndexerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`       // 轮询间隔
	ResetOnStart bool          `mapstructure:"reset_on_start"` // 启动时清空投影表
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
	Workers  int `mapstructure:"workers"`  // 对账协程池大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

// InitialBalanceWei 解析开发账户初始余额
func (c ChainConfig) InitialBalanceWei() (*big.Int, error) {
	return parseWei("chain.initial_balance", c.InitialBalance)
}

// ListingFeeWei 解析上架费用
func (r RegistryConfig) ListingFeeWei() (*big.Int, error) {
	return parseWei("registry.listing_fee", r.ListingFee)
}

func parseWei(key, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q: expected a non-negative integer amount of wei", key, value)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "ico")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "ico.db")
	v.SetDefault("chain.chain_id", 31337)
	v.SetDefault("chain.dev_accounts", 10)
	v.SetDefault("chain.initial_balance", "10000000000000000000000") // 10000 ether
	v.SetDefault("registry.listing_fee", "100000000000000000")       // 0.1 ether
	v.SetDefault("indexer.interval", "2s")
	v.SetDefault("indexer.reset_on_start", true)
	v.SetDefault("task.interval", 60)
	v.SetDefault("task.workers", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
}

// Load 从默认路径加载配置
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 加载配置，path 为空时按默认路径查找 config.yaml
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ico")
	}

	// 设置默认值
	setDefaults(v)

	// 自动读取环境变量, 例如 ICO_SERVER_PORT
	v.SetEnvPrefix("ico")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		logger.Warn("Could not read config file, using defaults: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if _, err := config.Chain.InitialBalanceWei(); err != nil {
		return nil, err
	}
	if _, err := config.Registry.ListingFeeWei(); err != nil {
		return nil, err
	}

	return &config, nil
}
