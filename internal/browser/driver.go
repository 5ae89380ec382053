package browser

import (
	"fmt"
	"strings"
)

// Kind 浏览器内核类型
type Kind string

const (
	KindChrome  Kind = "chrome"
	KindFirefox Kind = "firefox"
	KindWebkit  Kind = "webkit"
)

// String 实现字符串接口
func (k Kind) String() string {
	return string(k)
}

// IsValid 检查浏览器类型是否受支持
func (k Kind) IsValid() bool {
	switch k {
	case KindChrome, KindFirefox, KindWebkit:
		return true
	default:
		return false
	}
}

// ParseKind 在入口边界解析浏览器类型，未知类型直接报错而非静默降级
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("unsupported browser kind: %q", s)
	}
	return kind, nil
}

// ContextOptions 浏览器上下文的显式配置，字段枚举全部受支持的选项
type ContextOptions struct {
	Width     int    `json:"width" mapstructure:"width"`
	Height    int    `json:"height" mapstructure:"height"`
	UserAgent string `json:"user_agent" mapstructure:"user_agent"`
	IsMobile  bool   `json:"is_mobile" mapstructure:"is_mobile"`
}

// DefaultContextOptions 默认视口配置
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		Width:  1280,
		Height: 720,
	}
}

// ConsoleEvent 页面控制台消息事件
type ConsoleEvent struct {
	Type string
	Text string
}

// RequestEvent 页面发出请求事件
type RequestEvent struct {
	Method string
	URL    string
}

// ResponseEvent 页面收到响应事件
type ResponseEvent struct {
	Method string
	URL    string
	Status int
}

// Driver 浏览器自动化驱动能力，本系统只消费不实现
type Driver interface {
	// Launch 启动指定内核的浏览器实例
	Launch(kind Kind, headless bool) (Browser, error)
	// Stop 停止驱动并释放全部残留资源
	Stop() error
}

// Browser 一个已启动的浏览器实例
type Browser interface {
	NewContext(opts ContextOptions) (Context, error)
	Close() error
}

// Context 一个隔离的浏览器上下文
type Context interface {
	NewPage() (Page, error)
	Close() error
}

// Page 单个页面句柄。动作调用依赖驱动自身的超时机制，
// 不在本层重试或补偿；事件订阅在驱动自己的派发协程上回调。
type Page interface {
	Goto(url string) error
	Fill(selector, value string) error
	Click(selector string) error
	SelectOption(selector, value string) error
	Press(key string) error
	Evaluate(script string) (any, error)

	IsVisible(selector string) (bool, error)
	IsEnabled(selector string) (bool, error)
	TextContent(selector string) (string, error)

	OnConsole(handler func(ConsoleEvent))
	OnRequest(handler func(RequestEvent))
	OnResponse(handler func(ResponseEvent))

	IsClosed() bool
	Close() error
}
