package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	API struct {
		Port           string        `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"api"`

	MarketData struct {
		QuoteURL      string        `yaml:"quote_url"`
		ChartURL      string        `yaml:"chart_url"`
		UserAgent     string        `yaml:"user_agent"`
		BatchTimeout  time.Duration `yaml:"batch_timeout"`
		SingleTimeout time.Duration `yaml:"single_timeout"`
		// Concurrency 浏览接口逐只请求的并发上限
		Concurrency int `yaml:"concurrency"`
	} `yaml:"market_data"`

	Cache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Screener struct {
		BatchSize int `yaml:"batch_size"`
	} `yaml:"screener"`

	Directory struct {
		FeedURL     string        `yaml:"feed_url"`
		DataDir     string        `yaml:"data_dir"`
		StocksFile  string        `yaml:"stocks_file"`
		SymbolsFile string        `yaml:"symbols_file"`
		Timeout     time.Duration `yaml:"timeout"`
		// RefreshCron 定时刷新目录的 cron 表达式，为空时不刷新
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"directory"`

	Fundamentals struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"fundamentals"`

	Database struct {
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"database"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
}

// PostgresConfig Postgres 连接配置，Host 为空表示不启用
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled 是否配置了数据库
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN 构建连接字符串
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Default 返回默认配置
func Default() *Config {
	var c Config
	c.App.Name = "stock-screener"
	c.App.Env = "dev"

	c.Log.Level = "info"

	c.API.Port = "3001"
	c.API.ReadTimeout = 15 * time.Second
	// 全市场筛选耗时较长
	c.API.WriteTimeout = 10 * time.Minute
	c.API.AllowedOrigins = []string{"*"}

	c.MarketData.QuoteURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	c.MarketData.ChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	c.MarketData.UserAgent = "Mozilla/5.0"
	c.MarketData.BatchTimeout = 8 * time.Second
	c.MarketData.SingleTimeout = 5 * time.Second
	c.MarketData.Concurrency = 10

	c.Cache.TTL = 5 * time.Minute
	c.Screener.BatchSize = 100

	c.Directory.FeedURL = "https://www.nasdaqtrader.com/dynamic/symdir/nasdaqtraded.txt"
	c.Directory.DataDir = "."
	c.Directory.StocksFile = "all-us-stocks.json"
	c.Directory.SymbolsFile = "all-us-symbols.json"
	c.Directory.Timeout = 60 * time.Second

	c.Fundamentals.BaseURL = "https://www.alphavantage.co/query"
	c.Fundamentals.APIKey = "demo"
	c.Fundamentals.Timeout = 10 * time.Second

	c.Database.Postgres.Port = 5432
	c.Database.Postgres.SSLMode = "disable"

	return &c
}

// LoadConfig 加载配置：默认值 → YAML 文件 → 环境变量
//
// 文件不存在时只使用默认值和环境变量。
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	overrideFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	if c.Screener.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("screener.batch_size 必须大于 0"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl 必须大于 0"))
	}
	if c.MarketData.BatchTimeout <= 0 || c.MarketData.SingleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("market_data 超时时间必须大于 0"))
	}
	if c.Fundamentals.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fundamentals.timeout 必须大于 0"))
	}
	if c.API.Port == "" {
		errs = append(errs, fmt.Errorf("api.port 不能为空"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	// 应用
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// 日志
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		config.Log.Level = env
	}
	if env := os.Getenv("LOG_PRETTY"); env != "" {
		config.Log.Pretty = parseBool(env, config.Log.Pretty)
	}

	// API配置，PORT 与原服务保持兼容
	if env := os.Getenv("PORT"); env != "" {
		config.API.Port = env
	}
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}
	if env := os.Getenv("API_ALLOWED_ORIGINS"); env != "" {
		config.API.AllowedOrigins = splitList(env)
	}

	// 行情
	if env := os.Getenv("QUOTE_URL"); env != "" {
		config.MarketData.QuoteURL = env
	}
	if env := os.Getenv("CHART_URL"); env != "" {
		config.MarketData.ChartURL = env
	}
	if env := os.Getenv("CACHE_TTL"); env != "" {
		config.Cache.TTL = parseDuration(env, config.Cache.TTL)
	}
	if env := os.Getenv("SCREENER_BATCH_SIZE"); env != "" {
		config.Screener.BatchSize = parseInt(env, config.Screener.BatchSize)
	}

	// 目录
	if env := os.Getenv("DIRECTORY_FEED_URL"); env != "" {
		config.Directory.FeedURL = env
	}
	if env := os.Getenv("DIRECTORY_DATA_DIR"); env != "" {
		config.Directory.DataDir = env
	}
	if env := os.Getenv("DIRECTORY_REFRESH_CRON"); env != "" {
		config.Directory.RefreshCron = env
	}

	// 基本面
	if env := os.Getenv("ALPHAVANTAGE_API_KEY"); env != "" {
		config.Fundamentals.APIKey = env
	}

	// 数据库配置
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Database.Postgres.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		config.Database.Postgres.Port = parseInt(env, config.Database.Postgres.Port)
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Database.Postgres.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Database.Postgres.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Database.Postgres.DBName = env
	}
	if env := os.Getenv("DB_SSLMODE"); env != "" {
		config.Database.Postgres.SSLMode = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseBool(s string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
