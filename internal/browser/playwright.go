package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/playwright-community/playwright-go"
)

// ErrSerializationFailed 页面求值返回值无法表示为可序列化数据
var ErrSerializationFailed = errors.New("evaluation result cannot be serialized")

var (
	_ Driver  = (*PlaywrightDriver)(nil)
	_ Browser = (*playwrightBrowser)(nil)
	_ Context = (*playwrightContext)(nil)
	_ Page    = (*playwrightPage)(nil)
)

// PlaywrightDriver 基于Playwright sidecar的驱动实现
type PlaywrightDriver struct {
	mu         sync.Mutex
	pw         *playwright.Playwright
	maxRetries int
	retryDelay time.Duration
}

// PlaywrightDriverOption 驱动选项
type PlaywrightDriverOption func(*PlaywrightDriver)

// WithLaunchRetry 设置sidecar启动重试参数
func WithLaunchRetry(maxRetries int, interval time.Duration) PlaywrightDriverOption {
	return func(d *PlaywrightDriver) {
		d.maxRetries = maxRetries
		d.retryDelay = interval
	}
}

// NewPlaywrightDriver 创建驱动实例，sidecar进程延迟到首次Launch才启动
func NewPlaywrightDriver(opts ...PlaywrightDriverOption) *PlaywrightDriver {
	d := &PlaywrightDriver{
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ensureRunning 启动Playwright sidecar。sidecar冷启动可能较慢，
// 用指数退避重试；动作级调用不重试，失败直接上抛。
func (d *PlaywrightDriver) ensureRunning() (*playwright.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw != nil {
		return d.pw, nil
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = d.retryDelay
	backOff.MaxElapsedTime = time.Duration(d.maxRetries) * d.retryDelay

	var pw *playwright.Playwright
	err := backoff.Retry(func() error {
		var runErr error
		pw, runErr = playwright.Run()
		return runErr
	}, backOff)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright driver: %w", err)
	}

	d.pw = pw
	return pw, nil
}

// Launch 启动指定内核的浏览器实例
func (d *PlaywrightDriver) Launch(kind Kind, headless bool) (Browser, error) {
	pw, err := d.ensureRunning()
	if err != nil {
		return nil, err
	}

	var browserType playwright.BrowserType
	switch kind {
	case KindChrome:
		browserType = pw.Chromium
	case KindFirefox:
		browserType = pw.Firefox
	case KindWebkit:
		browserType = pw.WebKit
	default:
		return nil, fmt.Errorf("unsupported browser kind: %q", kind)
	}

	b, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", kind, err)
	}

	return &playwrightBrowser{browser: b}, nil
}

// Stop 停止sidecar进程
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pw == nil {
		return nil
	}
	err := d.pw.Stop()
	d.pw = nil
	return err
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(opts ContextOptions) (Context, error) {
	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.Width > 0 && opts.Height > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.Width, Height: opts.Height}
	}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.IsMobile {
		ctxOpts.IsMobile = playwright.Bool(true)
	}

	ctx, err := b.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	return &playwrightContext{context: ctx}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	context playwright.BrowserContext
}

func (c *playwrightContext) NewPage() (Page, error) {
	page, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url)
	return err
}

func (p *playwrightPage) Fill(selector, value string) error {
	return p.page.Fill(selector, value)
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Click(selector)
}

func (p *playwrightPage) SelectOption(selector, value string) error {
	_, err := p.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	})
	return err
}

func (p *playwrightPage) Press(key string) error {
	return p.page.Keyboard().Press(key)
}

// Evaluate 执行页面脚本并把结果约束为可JSON序列化的值
func (p *playwrightPage) Evaluate(script string) (any, error) {
	result, err := p.page.Evaluate(script)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	if _, err := json.Marshal(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return result, nil
}

func (p *playwrightPage) IsVisible(selector string) (bool, error) {
	return p.page.IsVisible(selector)
}

func (p *playwrightPage) IsEnabled(selector string) (bool, error) {
	return p.page.IsEnabled(selector)
}

func (p *playwrightPage) TextContent(selector string) (string, error) {
	return p.page.TextContent(selector)
}

func (p *playwrightPage) OnConsole(handler func(ConsoleEvent)) {
	p.page.OnConsole(func(msg playwright.ConsoleMessage) {
		handler(ConsoleEvent{Type: msg.Type(), Text: msg.Text()})
	})
}

func (p *playwrightPage) OnRequest(handler func(RequestEvent)) {
	p.page.OnRequest(func(req playwright.Request) {
		handler(RequestEvent{Method: req.Method(), URL: req.URL()})
	})
}

func (p *playwrightPage) OnResponse(handler func(ResponseEvent)) {
	p.page.OnResponse(func(resp playwright.Response) {
		handler(ResponseEvent{
			Method: resp.Request().Method(),
			URL:    resp.URL(),
			Status: resp.Status(),
		})
	})
}

func (p *playwrightPage) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}
