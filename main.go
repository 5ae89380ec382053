package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"GoFormAcceptanceTest/api/handlers"
	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/config"
	"GoFormAcceptanceTest/internal/httpserver"
	"GoFormAcceptanceTest/internal/logger"
	"GoFormAcceptanceTest/internal/runner"
	"GoFormAcceptanceTest/internal/session"
	"GoFormAcceptanceTest/internal/teststore"
)

func main() {
	var (
		mode       = flag.String("mode", "demo", "运行模式: demo, server, run")
		caseID     = flag.String("case", "", "run模式下要执行的测试用例ID")
		sessionKey = flag.String("session", "", "run模式下使用的会话键，留空用default")
		timeout    = flag.Duration("timeout", 5*time.Minute, "run模式下的执行超时")
	)
	flag.Parse()

	logger.InitLogger()

	switch *mode {
	case "demo":
		runDemo()
	case "server":
		runServer()
	case "run":
		runCase(*caseID, *sessionKey, *timeout)
	default:
		fmt.Printf("未知模式: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runDemo 运行演示模式
func runDemo() {
	fmt.Println("🚀 GoFormAcceptanceTest - 表单验收测试编排平台")
	fmt.Println("=================================================")
	fmt.Println()

	fmt.Println("📋 项目特性:")
	fmt.Println("  ✅ 多会话浏览器编排(chrome/firefox/webkit)")
	fmt.Println("  ✅ data-testid选择器自动解析")
	fmt.Println("  ✅ 跨平台键盘快捷键归一化")
	fmt.Println("  ✅ 控制台日志+网络活动采集")
	fmt.Println("  ✅ 声明式测试步骤解释执行")
	fmt.Println("  ✅ PostgreSQL测试用例库(可选)")
	fmt.Println("  ✅ 实时日志WebSocket推送")
	fmt.Println()

	fmt.Println("🔧 快速开始:")
	fmt.Println("  # 启动HTTP控制面")
	fmt.Println("  go run main.go -mode=server")
	fmt.Println()
	fmt.Println("  # 启动一个浏览器会话")
	fmt.Println("  curl -X POST localhost:18080/api/v1/browser/launch -d '{\"session_key\":\"web1\"}'")
	fmt.Println()
	fmt.Println("  # 执行数据库中保存的用例")
	fmt.Println("  go run main.go -mode=run -case=signup-happy-path")
	fmt.Println()

	fmt.Println("📚 更多信息:")
	fmt.Println("  配置文件: configs/platform-config.yaml")
	fmt.Println("  环境变量前缀: FORMTEST_")
}

// buildPlatform 按配置装配驱动、会话注册表、执行器和用例库
func buildPlatform(cfg *config.PlatformConfig) (*session.Registry, *runner.StepExecutor, teststore.Store, error) {
	driver := browser.NewPlaywrightDriver(
		browser.WithLaunchRetry(cfg.Browser.LaunchRetries, cfg.Browser.LaunchRetryInterval),
	)

	registry := session.NewRegistry(driver,
		session.WithContextOptions(browser.ContextOptions{
			Width:     cfg.Context.Width,
			Height:    cfg.Context.Height,
			UserAgent: cfg.Context.UserAgent,
			IsMobile:  cfg.Context.IsMobile,
		}),
		session.WithTelemetryLimit(cfg.Capture.MaxEntries),
	)

	executor := runner.NewStepExecutor(registry, runner.Options{
		StepDelay:         cfg.Runner.StepDelay,
		KeyDelay:          cfg.Runner.KeyDelay,
		ContinueOnFailure: cfg.Runner.ContinueOnFailure,
		MacKeyboard:       cfg.Runner.MacKeyboard,
	})

	var store teststore.Store
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		pgStore, err := teststore.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect test case store: %w", err)
		}
		store = pgStore
		logger.LogSuccess("teststore", "PostgreSQL用例库已连接", "")
	} else {
		store = teststore.NewMemoryStore()
		logger.LogInfo("teststore", "数据库未启用，使用内存用例库", "")
	}

	return registry, executor, store, nil
}

// runServer 启动HTTP控制面
func runServer() {
	cfg, err := config.GetGlobalConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitGlobalLogger()

	registry, executor, store, err := buildPlatform(cfg)
	if err != nil {
		log.Fatalf("平台装配失败: %v", err)
	}
	defer store.Close()

	server := httpserver.NewAPIServer(
		httpserver.Config{
			Addr:         cfg.Server.Addr,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		registry,
		handlers.NewBrowserHandler(registry, executor),
		handlers.NewTestCaseHandler(store, executor),
	)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("启动服务器失败: %v", err)
		}
	}()

	fmt.Printf("✅ 控制面已启动，监听地址: %s\n", cfg.Server.Addr)
	fmt.Printf("📊 健康检查: http://localhost%s/api/v1/health\n", cfg.Server.Addr)
	fmt.Printf("📡 实时日志: ws://localhost%s/ws/logs\n", cfg.Server.Addr)

	// 优雅关闭
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	fmt.Println("\n🔄 正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("服务器关闭错误: %v", err)
	}
	if err := registry.CloseAll(); err != nil {
		log.Printf("会话清理错误: %v", err)
	}

	fmt.Println("✅ 已关闭")
}

// runCase 执行一条已保存的测试用例后退出
func runCase(caseID, sessionKey string, timeout time.Duration) {
	if caseID == "" {
		log.Fatal("run模式需要 -case 指定测试用例ID")
	}

	cfg, err := config.GetGlobalConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	registry, executor, store, err := buildPlatform(cfg)
	if err != nil {
		log.Fatalf("平台装配失败: %v", err)
	}
	defer store.Close()
	defer func() {
		if err := registry.CloseAll(); err != nil {
			log.Printf("会话清理错误: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	tc, err := store.FindTestCase(ctx, caseID)
	if err != nil {
		log.Fatalf("读取测试用例失败: %v", err)
	}
	if tc == nil {
		log.Fatalf("测试用例不存在: %s", caseID)
	}

	kind, err := browser.ParseKind(cfg.Browser.DefaultKind)
	if err != nil {
		log.Fatalf("配置的浏览器类型非法: %v", err)
	}
	if _, err := registry.Launch(sessionKey, kind, cfg.Browser.Headless); err != nil {
		log.Fatalf("浏览器启动失败: %v", err)
	}

	result, err := executor.ExecuteTestCase(ctx, sessionKey, tc)
	if err != nil {
		log.Fatalf("用例执行失败: %v", err)
	}

	fmt.Printf("\n📋 %s (%s)\n", tc.Title, tc.ID)
	fmt.Printf("状态: %s  通过: %d  失败: %d  耗时: %dms\n",
		result.Status, result.Passed, result.Failed, result.Duration)
	for _, step := range result.Results {
		mark := "✅"
		if !step.Success {
			mark = "❌"
		}
		fmt.Printf("  %s 步骤%d [%s] %s\n", mark, step.Index, step.Action, step.Message)
		if step.Error != "" {
			fmt.Printf("     错误: %s\n", step.Error)
		}
	}

	if result.Status != "completed" {
		os.Exit(1)
	}
}
