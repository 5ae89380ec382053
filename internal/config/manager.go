package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ConfigManager 统一配置管理器
type ConfigManager struct {
	mu           sync.RWMutex
	config       *PlatformConfig
	viper        *viper.Viper
	watchEnabled bool
}

// ConfigManagerOption 配置管理器选项
type ConfigManagerOption func(*ConfigManager)

// WithWatchEnabled 启用配置文件监控
func WithWatchEnabled(enabled bool) ConfigManagerOption {
	return func(cm *ConfigManager) {
		cm.watchEnabled = enabled
	}
}

// NewConfigManager 创建配置管理器
func NewConfigManager(opts ...ConfigManagerOption) *ConfigManager {
	cm := &ConfigManager{}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Load 加载配置（已加载则直接返回）
func (cm *ConfigManager) Load() (*PlatformConfig, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.config != nil {
		return cm.config, nil
	}

	config, viperInstance, err := loadConfigFromFile()
	if err != nil {
		return nil, fmt.Errorf("加载平台配置失败: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("平台配置校验失败: %w", err)
	}

	cm.config = config
	cm.viper = viperInstance

	if cm.watchEnabled {
		cm.watchConfig()
	}

	return config, nil
}

// Get 获取配置（未加载则自动加载）
func (cm *ConfigManager) Get() (*PlatformConfig, error) {
	cm.mu.RLock()
	if cm.config != nil {
		defer cm.mu.RUnlock()
		return cm.config, nil
	}
	cm.mu.RUnlock()

	return cm.Load()
}

// Reload 重新加载配置
func (cm *ConfigManager) Reload() error {
	config, viperInstance, err := loadConfigFromFile()
	if err != nil {
		return fmt.Errorf("重新加载平台配置失败: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("平台配置校验失败: %w", err)
	}

	cm.mu.Lock()
	cm.config = config
	cm.viper = viperInstance
	cm.mu.Unlock()

	return nil
}

// watchConfig 监控配置文件变化，变化时自动重载
func (cm *ConfigManager) watchConfig() {
	if cm.viper == nil {
		return
	}

	cm.viper.WatchConfig()
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		cm.Reload()
	})
}

// 全局配置管理器实例
var (
	globalConfigManager *ConfigManager
	configManagerOnce   sync.Once
)

// GetGlobalConfigManager 获取全局配置管理器
func GetGlobalConfigManager() *ConfigManager {
	configManagerOnce.Do(func() {
		globalConfigManager = NewConfigManager(
			WithWatchEnabled(true),
		)
	})
	return globalConfigManager
}

// GetGlobalConfig 获取全局平台配置
func GetGlobalConfig() (*PlatformConfig, error) {
	return GetGlobalConfigManager().Get()
}
