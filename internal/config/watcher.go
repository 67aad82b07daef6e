package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher 监听配置文件变更
// 变更后的配置通过校验才会生效,哪些字段可以热更新由回调决定
type Watcher struct {
	viper    *viper.Viper
	mu       sync.RWMutex
	current  *Config
	handlers []func(old, updated *Config)
	onError  func(error)
	stopped  bool
}

// NewWatcher 创建配置监听器,cfg 为启动时加载的配置
func NewWatcher(cfg *Config, configPath string) *Watcher {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Watcher{
		viper:   v,
		current: cfg,
		onError: func(error) {},
	}
}

// OnChange 注册配置变更回调
func (w *Watcher) OnChange(handler func(old, updated *Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// OnError 注册重新加载失败时的回调
func (w *Watcher) OnError(handler func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = handler
}

// Start 启动文件监听
func (w *Watcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := w.apply(); err != nil {
			w.mu.RLock()
			onError := w.onError
			w.mu.RUnlock()
			onError(err)
		}
	})
	w.viper.WatchConfig()

	return nil
}

// Reload 立即重新读取配置文件
func (w *Watcher) Reload() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return w.apply()
}

// apply 解析当前 viper 中的配置,校验通过后替换并通知回调
func (w *Watcher) apply() error {
	var updated Config
	if err := w.viper.Unmarshal(&updated); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := updated.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	old := w.current
	w.current = &updated
	handlers := make([]func(old, updated *Config), len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	// 回调在锁外执行
	for _, handler := range handlers {
		handler(old, &updated)
	}
	return nil
}

// Stop 停止分发变更,viper 不支持取消底层文件监听
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// Current 获取当前生效的配置
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
