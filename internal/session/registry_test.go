package session_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoFormAcceptanceTest/internal/browser"
	"GoFormAcceptanceTest/internal/session"
	"GoFormAcceptanceTest/internal/testutil"
)

// TestLaunchAndGetPage 启动后页面可查，关闭后查不到
func TestLaunchAndGetPage(t *testing.T) {
	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)

	sess, err := registry.Launch("s1", browser.KindChrome, true)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "s1", sess.Key)
	assert.Equal(t, browser.KindChrome, sess.Kind)
	assert.NotNil(t, registry.GetPage("s1"))

	require.NoError(t, registry.Close("s1"))
	assert.Nil(t, registry.GetPage("s1"))
}

// TestLaunchUnsupportedKind 未知浏览器类型直接报错
func TestLaunchUnsupportedKind(t *testing.T) {
	registry := session.NewRegistry(testutil.NewFakeDriver())

	_, err := registry.Launch("s1", browser.Kind("opera"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrUnsupportedBrowserKind)
	assert.Nil(t, registry.GetPage("s1"))
}

// TestCloseUnknownKeyIsNoOp 关闭未知键是无操作而非错误
func TestCloseUnknownKeyIsNoOp(t *testing.T) {
	registry := session.NewRegistry(testutil.NewFakeDriver())

	assert.NoError(t, registry.Close("missing"))
	// 重复关闭同样幂等
	_, err := registry.Launch("s1", browser.KindFirefox, true)
	require.NoError(t, err)
	assert.NoError(t, registry.Close("s1"))
	assert.NoError(t, registry.Close("s1"))
}

// TestRelaunchClosesPriorHandlesAndClearsLogs 同键重启先关旧句柄并清日志
func TestRelaunchClosesPriorHandlesAndClearsLogs(t *testing.T) {
	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)

	sess1, err := registry.Launch("s1", browser.KindChrome, true)
	require.NoError(t, err)
	sess1.Telemetry.AppendConsole("log", "stale entry")

	sess2, err := registry.Launch("s1", browser.KindChrome, true)
	require.NoError(t, err)

	// 旧浏览器实例应已关闭，不泄漏驱动句柄
	require.Equal(t, 2, driver.LaunchCount())
	assert.True(t, driver.Browsers[0].IsClosed())
	assert.False(t, driver.Browsers[1].IsClosed())

	// 日志清空但会话条目保留（同一个遥测日志对象复用）
	assert.Empty(t, sess2.Telemetry.ConsoleEntries())
	assert.NotNil(t, registry.GetPage("s1"))
}

// TestLaunchFailureLeavesNoEntry 驱动启动失败不留半注册会话
func TestLaunchFailureLeavesNoEntry(t *testing.T) {
	driver := testutil.NewFakeDriver()
	driver.LaunchErr = errors.New("driver exploded")
	registry := session.NewRegistry(driver)

	_, err := registry.Launch("s1", browser.KindChrome, true)
	require.Error(t, err)
	assert.Nil(t, registry.GetPage("s1"))

	keys := registry.ActiveKeys()
	assert.Empty(t, keys)
}

// TestTelemetryLookup 遥测日志按键查找，未知键报ErrSessionNotFound
func TestTelemetryLookup(t *testing.T) {
	registry := session.NewRegistry(testutil.NewFakeDriver())

	_, err := registry.Telemetry("nope")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = registry.Launch("s1", browser.KindWebkit, false)
	require.NoError(t, err)

	telemetry, err := registry.Telemetry("s1")
	require.NoError(t, err)
	assert.NotNil(t, telemetry)
}

// TestDefaultSessionKey 空键归一为default
func TestDefaultSessionKey(t *testing.T) {
	registry := session.NewRegistry(testutil.NewFakeDriver())

	_, err := registry.Launch("", browser.KindChrome, true)
	require.NoError(t, err)
	assert.NotNil(t, registry.GetPage(session.DefaultSessionKey))
	assert.NotNil(t, registry.GetPage(""))
}

// TestEventsFlowIntoSessionLog 新页面的事件自动流入会话日志
func TestEventsFlowIntoSessionLog(t *testing.T) {
	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)

	_, err := registry.Launch("s1", browser.KindChrome, true)
	require.NoError(t, err)

	page := driver.Browsers[0].Contexts[0].Pages[0]
	page.EmitConsole("warn", "deprecated API")
	page.EmitRequest("POST", "https://app.test/save")

	telemetry, err := registry.Telemetry("s1")
	require.NoError(t, err)
	assert.Len(t, telemetry.ConsoleEntries(), 1)
	assert.Len(t, telemetry.NetworkEntries(), 1)
}

// TestConcurrentLaunchCloseSameKey 同键并发launch/close不留半开状态
func TestConcurrentLaunchCloseSameKey(t *testing.T) {
	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				_, _ = registry.Launch("shared", browser.KindChrome, true)
			} else {
				_ = registry.Close("shared")
			}
		}(i)
	}
	wg.Wait()

	// 终态要么完全开要么完全关：有会话就必须有可用页面
	if sess := registry.Get("shared"); sess != nil {
		assert.NotNil(t, sess.Page())
		assert.False(t, sess.Page().IsClosed())
	}
	require.NoError(t, registry.CloseAll())
	assert.True(t, driver.Stopped)
}

// TestCloseAllStopsDriver 全局清理关闭所有会话并停止驱动
func TestCloseAllStopsDriver(t *testing.T) {
	driver := testutil.NewFakeDriver()
	registry := session.NewRegistry(driver)

	_, err := registry.Launch("a", browser.KindChrome, true)
	require.NoError(t, err)
	_, err = registry.Launch("b", browser.KindFirefox, true)
	require.NoError(t, err)

	require.NoError(t, registry.CloseAll())
	assert.Empty(t, registry.ActiveKeys())
	assert.True(t, driver.Stopped)
	for _, b := range driver.Browsers {
		assert.True(t, b.IsClosed())
	}
}
