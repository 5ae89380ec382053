package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/capture"
	"GoFormAcceptanceTest/internal/logger"
)

// DefaultSessionKey 调用方未指定会话键时使用的默认键
const DefaultSessionKey = "default"

var (
	// ErrSessionNotFound 未知会话键。查找失败绝不隐式创建会话
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedBrowserKind 非法的浏览器类型参数
	ErrUnsupportedBrowserKind = errors.New("unsupported browser kind")
)

// Session 一个具名的隔离浏览器自动化上下文。
// 驱动句柄（浏览器/上下文/页面）由会话独占，一起关闭；
// 遥测日志归会话条目所有，采集管线只持页面的非拥有引用。
type Session struct {
	Key       string       `json:"key"`
	Kind      browser.Kind `json:"kind"`
	Headless  bool         `json:"headless"`
	CreatedAt time.Time    `json:"created_at"`

	browser  browser.Browser
	context  browser.Context
	page     browser.Page
	listener *capture.PageListener

	Telemetry *capture.TelemetryLog `json:"-"`
}

// Page 会话的页面句柄
func (s *Session) Page() browser.Page {
	return s.page
}

// closeHandles 按页面→上下文→浏览器的顺序关闭驱动句柄。
// 任一句柄关闭出错不阻断后续句柄的关闭。
func (s *Session) closeHandles() error {
	var firstErr error
	if s.page != nil && !s.page.IsClosed() {
		if err := s.page.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.context != nil {
		if err := s.context.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Registry 会话注册表，持有全部活动会话。
// 按引用传递给需要它的组件，不做包级全局状态。
type Registry struct {
	mu       sync.RWMutex
	driver   browser.Driver
	sessions map[string]*Session

	// 同一会话键上的launch/close串行化；不同键互不阻塞
	keyMu   sync.Mutex
	keyLock map[string]*sync.Mutex

	contextOpts    browser.ContextOptions
	telemetryLimit int
}

// RegistryOption 注册表选项
type RegistryOption func(*Registry)

// WithContextOptions 设置新上下文的默认视口配置
func WithContextOptions(opts browser.ContextOptions) RegistryOption {
	return func(r *Registry) {
		r.contextOpts = opts
	}
}

// WithTelemetryLimit 设置单条遥测序列的容量上限
func WithTelemetryLimit(limit int) RegistryOption {
	return func(r *Registry) {
		r.telemetryLimit = limit
	}
}

// NewRegistry 创建会话注册表
func NewRegistry(driver browser.Driver, opts ...RegistryOption) *Registry {
	r := &Registry{
		driver:      driver,
		sessions:    make(map[string]*Session),
		keyLock:     make(map[string]*sync.Mutex),
		contextOpts: browser.DefaultContextOptions(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lockKey 取同一会话键的互斥锁
func (r *Registry) lockKey(key string) *sync.Mutex {
	r.keyMu.Lock()
	defer r.keyMu.Unlock()

	lock, ok := r.keyLock[key]
	if !ok {
		lock = &sync.Mutex{}
		r.keyLock[key] = lock
	}
	return lock
}

// normalizeKey 空键归一为默认键
func normalizeKey(key string) string {
	if key == "" {
		return DefaultSessionKey
	}
	return key
}

// Launch 为指定会话键启动浏览器。同一键已有活动会话时，
// 先完整关闭旧驱动句柄并清空日志，再创建新实例；
// 驱动启动失败不留下半注册的会话条目。
func (r *Registry) Launch(key string, kind browser.Kind, headless bool) (*Session, error) {
	key = normalizeKey(key)

	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBrowserKind, kind)
	}

	lock := r.lockKey(key)
	lock.Lock()
	defer lock.Unlock()

	// 旧会话必须先完全关闭，避免泄漏旧驱动句柄；
	// 日志对象保留复用，内容清空
	telemetry := capture.NewTelemetryLog(r.telemetryLimit)
	r.mu.Lock()
	prior := r.sessions[key]
	r.mu.Unlock()
	if prior != nil {
		if err := prior.closeHandles(); err != nil {
			logger.LogWarning("session", fmt.Sprintf("关闭旧会话句柄失败: %v", err), key)
		}
		prior.Telemetry.Clear()
		telemetry = prior.Telemetry
	}

	b, err := r.driver.Launch(kind, headless)
	if err != nil {
		r.removeEntry(key)
		return nil, fmt.Errorf("failed to launch browser for session %q: %w", key, err)
	}

	ctx, err := b.NewContext(r.contextOpts)
	if err != nil {
		b.Close()
		r.removeEntry(key)
		return nil, fmt.Errorf("failed to create context for session %q: %w", key, err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		ctx.Close()
		b.Close()
		r.removeEntry(key)
		return nil, fmt.Errorf("failed to create page for session %q: %w", key, err)
	}

	sess := &Session{
		Key:       key,
		Kind:      kind,
		Headless:  headless,
		CreatedAt: time.Now(),
		browser:   b,
		context:   ctx,
		page:      page,
		listener:  capture.NewPageListener(page),
		Telemetry: telemetry,
	}

	// 返回前把采集管线挂到新页面上，之后事件即开始异步入账
	sess.listener.Install(telemetry)

	r.mu.Lock()
	r.sessions[key] = sess
	r.mu.Unlock()

	logger.LogInfo("session", fmt.Sprintf("会话已启动: kind=%s headless=%v", kind, headless), key)
	return sess, nil
}

// removeEntry 删除会话条目（launch失败时的回滚路径）
func (r *Registry) removeEntry(key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()
}

// Get 按键查找会话，找不到返回nil
func (r *Registry) Get(key string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[normalizeKey(key)]
}

// GetPage 按键查找页面句柄。缺失是正常结果，返回nil而非错误
func (r *Registry) GetPage(key string) browser.Page {
	sess := r.Get(key)
	if sess == nil {
		return nil
	}
	return sess.Page()
}

// Telemetry 按键查找遥测日志，未知键返回ErrSessionNotFound
func (r *Registry) Telemetry(key string) (*capture.TelemetryLog, error) {
	sess := r.Get(key)
	if sess == nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, normalizeKey(key))
	}
	return sess.Telemetry, nil
}

// Close 关闭并移除指定会话。幂等：未知键或重复关闭都不是错误
func (r *Registry) Close(key string) error {
	key = normalizeKey(key)

	lock := r.lockKey(key)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	sess := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if sess == nil {
		return nil
	}

	err := sess.closeHandles()
	if err != nil {
		logger.LogWarning("session", fmt.Sprintf("关闭会话句柄出错: %v", err), key)
	}
	logger.LogInfo("session", "会话已关闭", key)
	return err
}

// CloseAll 关闭全部会话并停止驱动（进程退出时的全局清理）
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, key := range keys {
		if err := r.Close(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := r.driver.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ActiveKeys 当前活动会话键列表
func (r *Registry) ActiveKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	return keys
}
