package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizePlatformRewrite 测试平台相关修饰键改写
func TestNormalizePlatformRewrite(t *testing.T) {
	// Mac目标：Ctrl/Cmd/Command 全部归一为 Meta
	assert.Equal(t, "Meta+S", Normalize("Ctrl+S", true))
	assert.Equal(t, "Meta+S", Normalize("Cmd+S", true))
	assert.Equal(t, "Meta+S", Normalize("Command+S", true))
	assert.Equal(t, "Meta+S", Normalize("cTrL+S", true))

	// 非Mac目标：Cmd/Command/Meta 全部归一为 Ctrl
	assert.Equal(t, "Ctrl+C", Normalize("Cmd+C", false))
	assert.Equal(t, "Ctrl+C", Normalize("Command+C", false))
	assert.Equal(t, "Ctrl+C", Normalize("Meta+C", false))
	assert.Equal(t, "Ctrl+C", Normalize("Ctrl+C", false))
}

// TestNormalizeFixedPoint 固定平台下重复规范化是不动点
func TestNormalizeFixedPoint(t *testing.T) {
	inputs := []string{"Ctrl+Shift+I", "Cmd+A Cmd+C", "Tab Tab Enter", "Command+Option+Esc"}

	for _, in := range inputs {
		for _, isMac := range []bool{true, false} {
			once := Normalize(in, isMac)
			twice := Normalize(once, isMac)
			assert.Equal(t, once, twice, "input=%q isMac=%v", in, isMac)
		}
	}
}

// TestNormalizeRewritesEveryOccurrence 改写作用于所有出现位置
func TestNormalizeRewritesEveryOccurrence(t *testing.T) {
	assert.Equal(t, "Meta+A Meta+C Meta+V", Normalize("Ctrl+A Cmd+C Command+V", true))
}

// TestParseSingleChord 测试单个组合键解析
func TestParseSingleChord(t *testing.T) {
	seqs := Parse("Ctrl+Shift+I")
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "I", Ctrl: true, Shift: true}, seqs[0])
}

// TestParseSequence 测试多步按键序列解析，顺序即执行顺序
func TestParseSequence(t *testing.T) {
	seqs := Parse("Tab Tab Enter")
	require.Len(t, seqs, 3)
	assert.Equal(t, KeySequence{Key: "Tab"}, seqs[0])
	assert.Equal(t, KeySequence{Key: "Tab"}, seqs[1])
	assert.Equal(t, KeySequence{Key: "Enter"}, seqs[2])
}

// TestParseModifierVariants 修饰键大小写不敏感，未识别的忽略
func TestParseModifierVariants(t *testing.T) {
	seqs := Parse("CTRL+alt+x")
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "x", Ctrl: true, Alt: true}, seqs[0])

	// hyper 不是已知修饰键，忽略后其余照常生效
	seqs = Parse("Hyper+Shift+K")
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "K", Shift: true}, seqs[0])
}

// TestParseBareToken 无`+`的token整体作为键名，无修饰键
func TestParseBareToken(t *testing.T) {
	seqs := Parse("Escape")
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "Escape"}, seqs[0])
}

// TestParseEmptyInput 空输入产生空序列
func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("   "))
}

// TestCanonicalKeyName 测试同义键名映射
func TestCanonicalKeyName(t *testing.T) {
	cases := map[string]string{
		"esc":    "Escape",
		"return": "Enter",
		"up":     "ArrowUp",
		"down":   "ArrowDown",
		"f5":     "F5",
		"F12":    "F12",
		"a":      "a",
		"A":      "A",
		"+":      "+",
		"Enter":  "Enter",
		"Widget": "Widget",
	}

	for in, want := range cases {
		assert.Equal(t, want, CanonicalKeyName(in), "key=%q", in)
	}
}

// TestDriverKeyExpression 测试组合键表达式拼装
func TestDriverKeyExpression(t *testing.T) {
	assert.Equal(t, "Control+Shift+I", DriverKeyExpression(KeySequence{Key: "I", Ctrl: true, Shift: true}))
	assert.Equal(t, "Meta+s", DriverKeyExpression(KeySequence{Key: "s", Meta: true}))
	assert.Equal(t, "Escape", DriverKeyExpression(KeySequence{Key: "esc"}))
	assert.Equal(t, "Alt+F4", DriverKeyExpression(KeySequence{Key: "f4", Alt: true}))
}

// TestParseShortcutEndToEnd 规范化+解析组合入口
func TestParseShortcutEndToEnd(t *testing.T) {
	seqs := ParseShortcut("Cmd+S", false)
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "S", Ctrl: true}, seqs[0])

	seqs = ParseShortcut("Ctrl+S", true)
	require.Len(t, seqs, 1)
	assert.Equal(t, KeySequence{Key: "S", Meta: true}, seqs[0])
}
