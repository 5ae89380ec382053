package capture

import (
	"sync/atomic"

	"GoFormAcceptanceTest/internal/browser"
)

// TelemetrySink 页面遥测事件的接收端
type TelemetrySink interface {
	OnConsole(entry ConsoleLogEntry)
	OnRequest(entry NetworkLogEntry)
	OnResponse(entry NetworkLogEntry)
}

// OnConsole 实现TelemetrySink
func (l *TelemetryLog) OnConsole(entry ConsoleLogEntry) {
	l.AppendConsole(entry.Type, entry.Text)
}

// OnRequest 实现TelemetrySink
func (l *TelemetryLog) OnRequest(entry NetworkLogEntry) {
	l.AppendRequest(entry.Method, entry.URL)
}

// OnResponse 实现TelemetrySink
func (l *TelemetryLog) OnResponse(entry NetworkLogEntry) {
	l.AppendResponse(entry.Method, entry.URL, entry.Status)
}

var _ TelemetrySink = (*TelemetryLog)(nil)

// PageListener 把单个页面的遥测镜像到sink。
// installed哨兵保证同一页面只挂一次事件处理器，
// 重复Install不会造成双份记录。
type PageListener struct {
	page      browser.Page
	installed atomic.Bool
}

// NewPageListener 创建页面监听器，尚未挂接事件
func NewPageListener(page browser.Page) *PageListener {
	return &PageListener{page: page}
}

// Install 挂接console/request/response事件到sink，幂等。
// 回调在驱动自己的事件协程上触发；畸形负载静默丢弃，
// 采集路径的任何问题都不允许影响测试执行。
func (p *PageListener) Install(sink TelemetrySink) {
	if !p.installed.CompareAndSwap(false, true) {
		return
	}

	p.page.OnConsole(func(ev browser.ConsoleEvent) {
		defer swallowPanic()
		sink.OnConsole(ConsoleLogEntry{Type: ev.Type, Text: ev.Text})
	})

	p.page.OnRequest(func(ev browser.RequestEvent) {
		defer swallowPanic()
		sink.OnRequest(NetworkLogEntry{Method: ev.Method, URL: ev.URL})
	})

	p.page.OnResponse(func(ev browser.ResponseEvent) {
		defer swallowPanic()
		sink.OnResponse(NetworkLogEntry{Method: ev.Method, URL: ev.URL, Status: ev.Status})
	})
}

// Installed 返回事件处理器是否已挂接
func (p *PageListener) Installed() bool {
	return p.installed.Load()
}

// swallowPanic 遥测采集尽力而为，绝不向解释器或调用方冒泡
func swallowPanic() {
	_ = recover()
}
