package logger

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LogMessage 日志消息结构
type LogMessage struct {
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Module     string    `json:"module"`
	SessionKey string    `json:"session_key,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WebSocketLogger WebSocket日志广播器，把平台日志实时推给已连接的观察者
type WebSocketLogger struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan LogMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewWebSocketLogger 创建新的WebSocket日志器
func NewWebSocketLogger() *WebSocketLogger {
	return &WebSocketLogger{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan LogMessage, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run 启动广播循环
func (wsl *WebSocketLogger) Run() {
	for {
		select {
		case client := <-wsl.register:
			wsl.mu.Lock()
			wsl.clients[client] = true
			wsl.mu.Unlock()
			log.Printf("日志观察者已连接，当前连接数: %d", wsl.clientCount())

		case client := <-wsl.unregister:
			wsl.mu.Lock()
			if _, ok := wsl.clients[client]; ok {
				delete(wsl.clients, client)
				client.Close()
			}
			wsl.mu.Unlock()

		case message := <-wsl.broadcast:
			wsl.mu.Lock()
			for client := range wsl.clients {
				if err := client.WriteJSON(message); err != nil {
					delete(wsl.clients, client)
					client.Close()
				}
			}
			wsl.mu.Unlock()
		}
	}
}

func (wsl *WebSocketLogger) clientCount() int {
	wsl.mu.RLock()
	defer wsl.mu.RUnlock()
	return len(wsl.clients)
}

// emit 输出到控制台并尽力广播；通道满时丢弃避免阻塞调用方
func (wsl *WebSocketLogger) emit(level, module, message, sessionKey string) {
	logMsg := LogMessage{
		Level:      level,
		Message:    message,
		Module:     module,
		SessionKey: sessionKey,
		Timestamp:  time.Now(),
	}

	if sessionKey != "" {
		log.Printf("[%s] [%s] %s: %s", level, sessionKey, module, message)
	} else {
		log.Printf("[%s] %s: %s", level, module, message)
	}

	select {
	case wsl.broadcast <- logMsg:
	default:
	}
}

// LogInfo 记录信息日志
func (wsl *WebSocketLogger) LogInfo(module, message, sessionKey string) {
	wsl.emit("INFO", module, message, sessionKey)
}

// LogError 记录错误日志
func (wsl *WebSocketLogger) LogError(module, message, sessionKey string) {
	wsl.emit("ERROR", module, message, sessionKey)
}

// LogSuccess 记录成功日志
func (wsl *WebSocketLogger) LogSuccess(module, message, sessionKey string) {
	wsl.emit("SUCCESS", module, message, sessionKey)
}

// LogWarning 记录警告日志
func (wsl *WebSocketLogger) LogWarning(module, message, sessionKey string) {
	wsl.emit("WARNING", module, message, sessionKey)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 观察端口不做来源限制
	},
}

// HandleWebSocket 处理日志流WebSocket连接
func (wsl *WebSocketLogger) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	wsl.register <- conn

	welcomeMsg := LogMessage{
		Level:     "INFO",
		Message:   "已连接到表单验收测试平台日志流",
		Module:    "websocket",
		Timestamp: time.Now(),
	}
	conn.WriteJSON(welcomeMsg)

	defer func() {
		wsl.unregister <- conn
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket连接错误: %v", err)
			}
			break
		}
	}
}

// 全局日志器实例
var GlobalLogger *WebSocketLogger

// InitGlobalLogger 初始化全局日志器
func InitGlobalLogger() {
	GlobalLogger = NewWebSocketLogger()
	go GlobalLogger.Run()
}

// 便捷函数，全局日志器未初始化时仍输出到控制台

func LogInfo(module, message, sessionKey string) {
	if GlobalLogger != nil {
		GlobalLogger.LogInfo(module, message, sessionKey)
		return
	}
	log.Printf("[INFO] %s: %s", module, message)
}

func LogError(module, message, sessionKey string) {
	if GlobalLogger != nil {
		GlobalLogger.LogError(module, message, sessionKey)
		return
	}
	log.Printf("[ERROR] %s: %s", module, message)
}

func LogSuccess(module, message, sessionKey string) {
	if GlobalLogger != nil {
		GlobalLogger.LogSuccess(module, message, sessionKey)
		return
	}
	log.Printf("[SUCCESS] %s: %s", module, message)
}

func LogWarning(module, message, sessionKey string) {
	if GlobalLogger != nil {
		GlobalLogger.LogWarning(module, message, sessionKey)
		return
	}
	log.Printf("[WARNING] %s: %s", module, message)
}
