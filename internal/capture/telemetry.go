package capture

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ConsoleLogEntry 控制台日志条目，追加后不可变
type ConsoleLogEntry struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEntryType 网络日志条目类型
type NetworkEntryType string

const (
	NetworkEntryRequest  NetworkEntryType = "request"
	NetworkEntryResponse NetworkEntryType = "response"
	NetworkEntryFetch    NetworkEntryType = "fetch"
)

// NetworkLogEntry 网络日志条目。请求和响应是两条独立记录，
// 只能靠调用方按url/method匹配关联；请求在途时Status缺省。
type NetworkLogEntry struct {
	Type      NetworkEntryType `json:"type"`
	Method    string           `json:"method"`
	URL       string           `json:"url"`
	Status    int              `json:"status,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// TelemetryLog 会话级遥测日志：控制台和网络两条只追加序列。
// 驱动事件协程的追加与上报调用的读取可以任意交错，
// 读取返回快照副本，永不原地修改。
type TelemetryLog struct {
	mu      sync.RWMutex
	console []ConsoleLogEntry
	network []NetworkLogEntry

	maxEntries int

	// 统计计数器
	consoleCount atomic.Int64
	networkCount atomic.Int64
	droppedCount atomic.Int64
}

// NewTelemetryLog 创建遥测日志。maxEntries<=0 表示不限容量，
// 超容后新条目被丢弃并计数（只追加序列不淘汰旧条目）。
func NewTelemetryLog(maxEntries int) *TelemetryLog {
	return &TelemetryLog{
		console:    make([]ConsoleLogEntry, 0, 256),
		network:    make([]NetworkLogEntry, 0, 256),
		maxEntries: maxEntries,
	}
}

// AppendConsole 追加一条控制台日志
func (l *TelemetryLog) AppendConsole(msgType, text string) {
	entry := ConsoleLogEntry{
		Type:      strings.ToLower(msgType),
		Text:      text,
		Timestamp: time.Now(),
	}

	l.mu.Lock()
	if l.maxEntries > 0 && len(l.console) >= l.maxEntries {
		l.mu.Unlock()
		l.droppedCount.Add(1)
		return
	}
	l.console = append(l.console, entry)
	l.mu.Unlock()

	l.consoleCount.Add(1)
}

// AppendRequest 追加一条请求记录，Status留空表示在途
func (l *TelemetryLog) AppendRequest(method, url string) {
	l.appendNetwork(NetworkLogEntry{
		Type:      NetworkEntryRequest,
		Method:    method,
		URL:       url,
		Timestamp: time.Now(),
	})
}

// AppendResponse 追加一条响应记录
func (l *TelemetryLog) AppendResponse(method, url string, status int) {
	l.appendNetwork(NetworkLogEntry{
		Type:      NetworkEntryResponse,
		Method:    method,
		URL:       url,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (l *TelemetryLog) appendNetwork(entry NetworkLogEntry) {
	l.mu.Lock()
	if l.maxEntries > 0 && len(l.network) >= l.maxEntries {
		l.mu.Unlock()
		l.droppedCount.Add(1)
		return
	}
	l.network = append(l.network, entry)
	l.mu.Unlock()

	l.networkCount.Add(1)
}

// ConsoleEntries 获取控制台日志快照
func (l *TelemetryLog) ConsoleEntries() []ConsoleLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]ConsoleLogEntry{}, l.console...)
}

// NetworkEntries 获取网络日志快照
func (l *TelemetryLog) NetworkEntries() []NetworkLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]NetworkLogEntry{}, l.network...)
}

// FilterNetwork 按URL子串过滤网络日志，空过滤串返回全部
func (l *TelemetryLog) FilterNetwork(urlFilter string) []NetworkLogEntry {
	if urlFilter == "" {
		return l.NetworkEntries()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	filtered := make([]NetworkLogEntry, 0, len(l.network))
	for _, entry := range l.network {
		if strings.Contains(entry.URL, urlFilter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Clear 清空两条日志序列（同一会话键重新launch时调用）
func (l *TelemetryLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.console = l.console[:0]
	l.network = l.network[:0]
}

// Stats 遥测日志统计
type Stats struct {
	ConsoleTotal int64 `json:"console_total"`
	NetworkTotal int64 `json:"network_total"`
	Dropped      int64 `json:"dropped"`
}

// GetStats 获取累计统计（含已被Clear清掉的条目）
func (l *TelemetryLog) GetStats() Stats {
	return Stats{
		ConsoleTotal: l.consoleCount.Load(),
		NetworkTotal: l.networkCount.Load(),
		Dropped:      l.droppedCount.Load(),
	}
}
