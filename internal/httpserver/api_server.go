package httpserver

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"GoFormAcceptanceTest/api/handlers"
	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/session"
)

// APIServer 浏览器编排平台的HTTP控制面
type APIServer struct {
	router   *mux.Router
	server   *http.Server
	registry *session.Registry

	browserHandler  *handlers.BrowserHandler
	testCaseHandler *handlers.TestCaseHandler

	// 统计信息
	requestCount int64
	responseTime []time.Duration
	startTime    time.Time
	mu           sync.RWMutex
}

// Config HTTP服务器参数，零值超时回落到内置默认
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewAPIServer 创建新的HTTP控制面服务器
func NewAPIServer(cfg Config, registry *session.Registry, browserHandler *handlers.BrowserHandler, testCaseHandler *handlers.TestCaseHandler) *APIServer {
	server := &APIServer{
		router:          mux.NewRouter(),
		registry:        registry,
		browserHandler:  browserHandler,
		testCaseHandler: testCaseHandler,
		startTime:       time.Now(),
	}

	server.setupRoutes()

	// 设置CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		// 步骤串行执行可能耗时较长
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	server.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(server.router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server
}

// setupRoutes 设置路由
func (s *APIServer) setupRoutes() {
	// 添加中间件
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.metricsMiddleware)

	// API路由
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// 浏览器会话管理
	api.HandleFunc("/browser/launch", s.browserHandler.LaunchBrowser).Methods("POST")
	api.HandleFunc("/browser/close", s.browserHandler.CloseBrowser).Methods("POST")
	api.HandleFunc("/browser/sessions", s.browserHandler.ListSessions).Methods("GET")

	// 页面操作
	api.HandleFunc("/browser/navigate", s.browserHandler.NavigateToUrl).Methods("POST")
	api.HandleFunc("/browser/fill", s.browserHandler.FillField).Methods("POST")
	api.HandleFunc("/browser/click", s.browserHandler.ClickElement).Methods("POST")
	api.HandleFunc("/browser/select", s.browserHandler.SelectOption).Methods("POST")
	api.HandleFunc("/browser/keys", s.browserHandler.SendKeyboardShortcut).Methods("POST")
	api.HandleFunc("/browser/evaluate", s.browserHandler.Evaluate).Methods("POST")

	// 遥测读取
	api.HandleFunc("/browser/console", s.browserHandler.GetConsoleLogs).Methods("GET")
	api.HandleFunc("/browser/network", s.browserHandler.GetNetworkActivity).Methods("GET")

	// 测试用例管理与执行
	api.HandleFunc("/testcases", s.testCaseHandler.SaveTestCase).Methods("POST")
	api.HandleFunc("/testcases", s.testCaseHandler.ListTestCases).Methods("GET")
	api.HandleFunc("/testcases/run", s.testCaseHandler.RunSteps).Methods("POST")
	api.HandleFunc("/testcases/{id}", s.testCaseHandler.GetTestCase).Methods("GET")
	api.HandleFunc("/testcases/{id}/run", s.testCaseHandler.RunTestCase).Methods("POST")

	// 健康检查和监控
	api.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	api.HandleFunc("/metrics", s.metricsHandler).Methods("GET")

	// 实时日志WebSocket
	s.router.HandleFunc("/ws/logs", func(w http.ResponseWriter, r *http.Request) {
		if logger.GlobalLogger == nil {
			http.Error(w, "log streaming not enabled", http.StatusServiceUnavailable)
			return
		}
		logger.GlobalLogger.HandleWebSocket(w, r)
	})
}

// 中间件
func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		log.Printf("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, duration)
	})
}

func (s *APIServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)

		s.mu.Lock()
		s.requestCount++
		s.responseTime = append(s.responseTime, duration)
		// 保持最近1000个请求的响应时间
		if len(s.responseTime) > 1000 {
			s.responseTime = s.responseTime[1:]
		}
		s.mu.Unlock()
	})
}

// 健康检查和指标
func (s *APIServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	handlers.WriteSuccess(w, map[string]interface{}{
		"status":          "healthy",
		"uptime":          time.Since(s.startTime).Seconds(),
		"active_sessions": len(s.registry.ActiveKeys()),
		"timestamp":       time.Now().UnixMilli(),
	})
}

func (s *APIServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avgResponseTime float64
	if len(s.responseTime) > 0 {
		var total time.Duration
		for _, rt := range s.responseTime {
			total += rt
		}
		avgResponseTime = float64(total.Nanoseconds()) / float64(len(s.responseTime)) / 1e6 // ms
	}

	metrics := map[string]interface{}{
		"uptime_seconds":       time.Since(s.startTime).Seconds(),
		"total_requests":       s.requestCount,
		"avg_response_time_ms": avgResponseTime,
		"active_sessions":      len(s.registry.ActiveKeys()),
	}

	handlers.WriteSuccess(w, metrics)
}

// Router 暴露路由器，供进程内测试直接挂接
func (s *APIServer) Router() http.Handler {
	return s.router
}

// Start 启动服务器
func (s *APIServer) Start() error {
	log.Printf("Starting HTTP API server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop 优雅停止服务器
func (s *APIServer) Stop(ctx context.Context) error {
	log.Printf("Stopping HTTP API server")
	return s.server.Shutdown(ctx)
}

// GetStats 获取服务器统计信息
func (s *APIServer) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avgResponseTime float64
	if len(s.responseTime) > 0 {
		var total time.Duration
		for _, rt := range s.responseTime {
			total += rt
		}
		avgResponseTime = float64(total.Nanoseconds()) / float64(len(s.responseTime)) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds":       time.Since(s.startTime).Seconds(),
		"total_requests":       s.requestCount,
		"avg_response_time_ms": avgResponseTime,
	}
}
