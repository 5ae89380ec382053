package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestResolvePassthroughCSS 测试含CSS元字符的输入原样返回
func TestResolvePassthroughCSS(t *testing.T) {
	inputs := []string{
		"#save-button",
		".form-field",
		"input[name='ssn']",
		"div > span",
		"form input",
		"button:hover",
		"[data-testid='already-wrapped']",
	}

	for _, in := range inputs {
		assert.Equal(t, in, Resolve(in), "CSS表达式不应被改写: %s", in)
	}
}

// TestResolveWrapsBareIdentifier 测试裸标识包装为data-testid属性选择器
func TestResolveWrapsBareIdentifier(t *testing.T) {
	cases := map[string]string{
		"first-name":  "[data-testid='first-name']",
		"save-button": "[data-testid='save-button']",
		"zip_code":    "[data-testid='zip_code']",
		"a":           "[data-testid='a']",
	}

	for in, want := range cases {
		assert.Equal(t, want, Resolve(in))
	}
}

// TestResolveDefensiveFallback 测试防御性兜底分支
func TestResolveDefensiveFallback(t *testing.T) {
	assert.Equal(t, "", Resolve(""))
	assert.Equal(t, "name=value", Resolve("name=value"))
}

// TestResolveWrappedInputPassthrough 已包装的输入因含`[`走原样返回分支
func TestResolveWrappedInputPassthrough(t *testing.T) {
	wrapped := Resolve("first-name")
	assert.Equal(t, wrapped, Resolve(wrapped))
}
