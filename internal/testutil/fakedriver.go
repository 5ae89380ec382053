package testutil

import (
	"fmt"
	"sync"

	"GoFormAcceptanceTest/internal/browser"
)

// FakeDriver 测试用内存驱动，记录全部调用，可注入失败
type FakeDriver struct {
	mu        sync.Mutex
	Browsers  []*FakeBrowser
	LaunchErr error
	Stopped   bool
}

var (
	_ browser.Driver  = (*FakeDriver)(nil)
	_ browser.Browser = (*FakeBrowser)(nil)
	_ browser.Context = (*FakeContext)(nil)
	_ browser.Page    = (*FakePage)(nil)
)

// NewFakeDriver 创建测试驱动
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Launch 实现browser.Driver
func (d *FakeDriver) Launch(kind browser.Kind, headless bool) (browser.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}

	b := &FakeBrowser{Kind: kind, Headless: headless}
	d.Browsers = append(d.Browsers, b)
	return b, nil
}

// Stop 实现browser.Driver
func (d *FakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Stopped = true
	return nil
}

// LaunchCount 已启动的浏览器实例数
func (d *FakeDriver) LaunchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Browsers)
}

// FakeBrowser 测试用浏览器实例
type FakeBrowser struct {
	mu            sync.Mutex
	Kind          browser.Kind
	Headless      bool
	Closed        bool
	Contexts      []*FakeContext
	NewContextErr error
}

// NewContext 实现browser.Browser
func (b *FakeBrowser) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NewContextErr != nil {
		return nil, b.NewContextErr
	}

	ctx := &FakeContext{Options: opts}
	b.Contexts = append(b.Contexts, ctx)
	return ctx, nil
}

// Close 实现browser.Browser
func (b *FakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// IsClosed 浏览器是否已关闭
func (b *FakeBrowser) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Closed
}

// FakeContext 测试用浏览器上下文
type FakeContext struct {
	mu         sync.Mutex
	Options    browser.ContextOptions
	Closed     bool
	Pages      []*FakePage
	NewPageErr error
}

// NewPage 实现browser.Context
func (c *FakeContext) NewPage() (browser.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.NewPageErr != nil {
		return nil, c.NewPageErr
	}

	page := NewFakePage()
	c.Pages = append(c.Pages, page)
	return page, nil
}

// Close 实现browser.Context
func (c *FakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// FakePage 测试用页面，按顺序记录动作调用
type FakePage struct {
	mu         sync.Mutex
	closed     bool
	Operations []string
	// FailOn 注入动作失败：键为动作名(goto/fill/click/select/press/evaluate)
	FailOn map[string]error
	// PanicOn 注入动作panic，模拟驱动内部崩溃
	PanicOn map[string]string

	VisibleResult  bool
	EnabledResult  bool
	TextResult     string
	EvaluateResult any

	consoleHandlers  []func(browser.ConsoleEvent)
	requestHandlers  []func(browser.RequestEvent)
	responseHandlers []func(browser.ResponseEvent)
}

// NewFakePage 创建测试页面，元素默认可见且可用
func NewFakePage() *FakePage {
	return &FakePage{
		FailOn:        make(map[string]error),
		PanicOn:       make(map[string]string),
		VisibleResult: true,
		EnabledResult: true,
	}
}

func (p *FakePage) record(op string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := op
	for _, arg := range args {
		entry += fmt.Sprintf(" %v", arg)
	}
	p.Operations = append(p.Operations, entry)

	if msg, ok := p.PanicOn[op]; ok {
		panic(msg)
	}
	return p.FailOn[op]
}

// Goto 实现browser.Page
func (p *FakePage) Goto(url string) error {
	return p.record("goto", url)
}

// Fill 实现browser.Page
func (p *FakePage) Fill(selector, value string) error {
	return p.record("fill", selector, value)
}

// Click 实现browser.Page
func (p *FakePage) Click(selector string) error {
	return p.record("click", selector)
}

// SelectOption 实现browser.Page
func (p *FakePage) SelectOption(selector, value string) error {
	return p.record("select", selector, value)
}

// Press 实现browser.Page
func (p *FakePage) Press(key string) error {
	return p.record("press", key)
}

// Evaluate 实现browser.Page
func (p *FakePage) Evaluate(script string) (any, error) {
	if err := p.record("evaluate", script); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.EvaluateResult, nil
}

// IsVisible 实现browser.Page
func (p *FakePage) IsVisible(selector string) (bool, error) {
	if err := p.record("visible", selector); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VisibleResult, nil
}

// IsEnabled 实现browser.Page
func (p *FakePage) IsEnabled(selector string) (bool, error) {
	if err := p.record("enabled", selector); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.EnabledResult, nil
}

// TextContent 实现browser.Page
func (p *FakePage) TextContent(selector string) (string, error) {
	if err := p.record("text", selector); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.TextResult, nil
}

// OnConsole 实现browser.Page
func (p *FakePage) OnConsole(handler func(browser.ConsoleEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consoleHandlers = append(p.consoleHandlers, handler)
}

// OnRequest 实现browser.Page
func (p *FakePage) OnRequest(handler func(browser.RequestEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestHandlers = append(p.requestHandlers, handler)
}

// OnResponse 实现browser.Page
func (p *FakePage) OnResponse(handler func(browser.ResponseEvent)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseHandlers = append(p.responseHandlers, handler)
}

// IsClosed 实现browser.Page
func (p *FakePage) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close 实现browser.Page
func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// EmitConsole 模拟驱动事件协程派发控制台消息
func (p *FakePage) EmitConsole(msgType, text string) {
	p.mu.Lock()
	handlers := append([]func(browser.ConsoleEvent){}, p.consoleHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(browser.ConsoleEvent{Type: msgType, Text: text})
	}
}

// EmitRequest 模拟驱动事件协程派发请求事件
func (p *FakePage) EmitRequest(method, url string) {
	p.mu.Lock()
	handlers := append([]func(browser.RequestEvent){}, p.requestHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(browser.RequestEvent{Method: method, URL: url})
	}
}

// EmitResponse 模拟驱动事件协程派发响应事件
func (p *FakePage) EmitResponse(method, url string, status int) {
	p.mu.Lock()
	handlers := append([]func(browser.ResponseEvent){}, p.responseHandlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(browser.ResponseEvent{Method: method, URL: url, Status: status})
	}
}

// HandlerCounts 返回已注册的各类事件处理器数量
func (p *FakePage) HandlerCounts() (console, request, response int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.consoleHandlers), len(p.requestHandlers), len(p.responseHandlers)
}

// OperationLog 返回动作调用记录快照
func (p *FakePage) OperationLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.Operations...)
}
