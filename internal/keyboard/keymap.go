package keyboard

import "strings"

// keyNameSynonyms 常见口语化键名到驱动键名的固定映射表
var keyNameSynonyms = map[string]string{
	"esc":       "Escape",
	"escape":    "Escape",
	"return":    "Enter",
	"enter":     "Enter",
	"tab":       "Tab",
	"space":     "Space",
	"spacebar":  "Space",
	"backspace": "Backspace",
	"del":       "Delete",
	"delete":    "Delete",
	"ins":       "Insert",
	"insert":    "Insert",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"up":        "ArrowUp",
	"down":      "ArrowDown",
	"left":      "ArrowLeft",
	"right":     "ArrowRight",
	"arrowup":   "ArrowUp",
	"arrowdown": "ArrowDown",
	"arrowleft": "ArrowLeft",
	"arrowright": "ArrowRight",
	"f1":  "F1",
	"f2":  "F2",
	"f3":  "F3",
	"f4":  "F4",
	"f5":  "F5",
	"f6":  "F6",
	"f7":  "F7",
	"f8":  "F8",
	"f9":  "F9",
	"f10": "F10",
	"f11": "F11",
	"f12": "F12",
}

// CanonicalKeyName 将主键名映射为驱动认识的规范键名。
// 单字符token原样透传（字母/数字/符号直接作为字面键），
// 同义词表命中则替换，其余保持原样交给驱动。
func CanonicalKeyName(key string) string {
	if len(key) == 1 {
		return key
	}
	if canonical, ok := keyNameSynonyms[strings.ToLower(key)]; ok {
		return canonical
	}
	return key
}

// DriverKeyExpression 将按键意图拼装为驱动的组合键表达式，
// 形如 "Control+Shift+I"。修饰键顺序固定，便于断言。
func DriverKeyExpression(seq KeySequence) string {
	parts := make([]string, 0, 5)
	if seq.Ctrl {
		parts = append(parts, "Control")
	}
	if seq.Alt {
		parts = append(parts, "Alt")
	}
	if seq.Shift {
		parts = append(parts, "Shift")
	}
	if seq.Meta {
		parts = append(parts, "Meta")
	}
	parts = append(parts, CanonicalKeyName(seq.Key))
	return strings.Join(parts, "+")
}
