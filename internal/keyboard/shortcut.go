package keyboard

import (
	"regexp"
	"strings"
)

// KeySequence 一次按键意图：主键名 + 修饰键状态
type KeySequence struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Alt   bool   `json:"alt"`
	Shift bool   `json:"shift"`
	Meta  bool   `json:"meta"`
}

// 平台相关修饰键改写规则（大小写不敏感，作用于所有出现位置）
var (
	macModifierPattern   = regexp.MustCompile(`(?i)\b(ctrl|cmd|command)\b`)
	otherModifierPattern = regexp.MustCompile(`(?i)\b(cmd|command|meta)\b`)
)

// Normalize 将平台歧义的修饰键名改写为目标平台的规范名。
// Mac目标：Ctrl/Cmd/Command 统一为 Meta；非Mac目标：Cmd/Command/Meta 统一为 Ctrl。
// 对固定平台重复应用是不动点。
func Normalize(raw string, isMac bool) string {
	if isMac {
		return macModifierPattern.ReplaceAllString(raw, "Meta")
	}
	return otherModifierPattern.ReplaceAllString(raw, "Ctrl")
}

// Parse 将规范化后的快捷键串解析为有序按键意图序列。
// 按空白切分为token，每个token是一步；token内按`+`切分，
// 末段为主键名，其余段为修饰键名（大小写不敏感，未识别的忽略）。
// 全函数，任何输入都有确定输出，永不失败。
func Parse(normalized string) []KeySequence {
	tokens := strings.Fields(normalized)
	sequences := make([]KeySequence, 0, len(tokens))

	for _, token := range tokens {
		segments := strings.Split(token, "+")

		seq := KeySequence{Key: segments[len(segments)-1]}
		for _, segment := range segments[:len(segments)-1] {
			switch strings.ToLower(segment) {
			case "ctrl", "control":
				seq.Ctrl = true
			case "alt", "option":
				seq.Alt = true
			case "shift":
				seq.Shift = true
			case "meta":
				seq.Meta = true
			default:
				// 未识别的修饰键名忽略而非报错
			}
		}

		sequences = append(sequences, seq)
	}

	return sequences
}

// ParseShortcut 规范化+解析的组合入口
func ParseShortcut(raw string, isMac bool) []KeySequence {
	return Parse(Normalize(raw, isMac))
}
