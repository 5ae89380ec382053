package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// PlatformConfig 平台配置
type PlatformConfig struct {
	Meta     MetaConfig     `mapstructure:"meta"`
	Server   ServerConfig   `mapstructure:"server"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Context  ContextConfig  `mapstructure:"context"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Database DatabaseConfig `mapstructure:"database"`
}

// MetaConfig 元信息
type MetaConfig struct {
	Project       string `mapstructure:"project"`
	ConfigVersion string `mapstructure:"config_version"`
}

// ServerConfig HTTP控制面配置
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// BrowserConfig 浏览器驱动配置
type BrowserConfig struct {
	DefaultKind         string        `mapstructure:"default_kind"`
	Headless            bool          `mapstructure:"headless"`
	LaunchRetries       int           `mapstructure:"launch_retries"`
	LaunchRetryInterval time.Duration `mapstructure:"launch_retry_interval"`
}

// ContextConfig 浏览器上下文默认配置，字段枚举全部受支持的选项
type ContextConfig struct {
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	UserAgent string `mapstructure:"user_agent"`
	IsMobile  bool   `mapstructure:"is_mobile"`
}

// RunnerConfig 步骤解释器配置
type RunnerConfig struct {
	StepDelay         time.Duration `mapstructure:"step_delay"`
	KeyDelay          time.Duration `mapstructure:"key_delay"`
	ContinueOnFailure bool          `mapstructure:"continue_on_failure"`
	MacKeyboard       bool          `mapstructure:"mac_keyboard"`
}

// CaptureConfig 遥测采集配置
type CaptureConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// DatabaseConfig 测试用例库配置
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN 拼装PostgreSQL连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// loadConfigFromFile 使用Viper从文件加载配置
func loadConfigFromFile() (*PlatformConfig, *viper.Viper, error) {
	v := viper.New()

	// 配置文件搜索路径
	v.SetConfigName("platform-config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// 环境变量覆盖
	v.SetEnvPrefix("FORMTEST")
	v.AutomaticEnv()

	setDefaultValues(v)

	// 配置文件不存在时静默使用默认值
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config PlatformConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, v, nil
}

// setDefaultValues 设置默认配置
func setDefaultValues(v *viper.Viper) {
	v.SetDefault("meta.project", "GoFormAcceptanceTest")
	v.SetDefault("meta.config_version", "1.0.0")

	v.SetDefault("server.addr", ":18080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("browser.default_kind", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.launch_retries", 3)
	v.SetDefault("browser.launch_retry_interval", "2s")

	v.SetDefault("context.width", 1280)
	v.SetDefault("context.height", 720)
	v.SetDefault("context.user_agent", "")
	v.SetDefault("context.is_mobile", false)

	v.SetDefault("runner.step_delay", "0s")
	v.SetDefault("runner.key_delay", "50ms")
	v.SetDefault("runner.continue_on_failure", false)
	v.SetDefault("runner.mac_keyboard", false)

	v.SetDefault("capture.max_entries", 10000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "formtest")
	v.SetDefault("database.sslmode", "disable")
}

// validateConfig 校验配置合法性
func validateConfig(config *PlatformConfig) error {
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	switch config.Browser.DefaultKind {
	case "chrome", "firefox", "webkit":
	default:
		return fmt.Errorf("browser.default_kind must be chrome/firefox/webkit, got %q", config.Browser.DefaultKind)
	}
	if config.Context.Width <= 0 || config.Context.Height <= 0 {
		return fmt.Errorf("context viewport must be positive, got %dx%d", config.Context.Width, config.Context.Height)
	}
	if config.Capture.MaxEntries < 0 {
		return fmt.Errorf("capture.max_entries must not be negative")
	}
	return nil
}
