package selector

import (
	"fmt"
	"strings"
)

// TestIDAttribute 语义短标识包装时使用的测试定位属性
const TestIDAttribute = "data-testid"

// cssMetaChars 出现任意一个即视为完整CSS表达式
const cssMetaChars = "[.#> :"

// Resolve 将调用方传入的元素引用解析为最终定位表达式。
// 规则：含CSS元字符的输入原样返回；不含`=`的裸标识包装为
// [data-testid='xxx'] 属性选择器；其余情况防御性原样返回。
// 该函数是全函数，永不失败，也不会校验DOM中是否存在对应元素。
func Resolve(input string) string {
	if strings.ContainsAny(input, cssMetaChars) {
		return input
	}

	if input != "" && !strings.Contains(input, "=") {
		return fmt.Sprintf("[%s='%s']", TestIDAttribute, input)
	}

	// 防御性兜底：空串或含`=`的奇异输入交给驱动去报错
	return input
}
