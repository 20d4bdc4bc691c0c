package llm

import (
	"regexp"
	"strings"
)

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*([\\[{].*?[\\]}])\\s*```")

// ExtractJSON 从LLM输出的文本中提取JSON部分（防止LLM返回的不是纯JSON）。
// 优先匹配 ```json ... ``` 代码块，其次做括号配对回退。
// 提取失败返回空字符串。
func ExtractJSON(text string) string {
	matches := jsonFenceRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// 对象和数组两种起始符都尝试，取最先出现的
	start := -1
	var open, closeCh byte
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	switch {
	case objStart == -1 && arrStart == -1:
		return ""
	case objStart == -1, arrStart != -1 && arrStart < objStart:
		start, open, closeCh = arrStart, '[', ']'
	default:
		start, open, closeCh = objStart, '{', '}'
	}

	// 查找配对的结束符
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			level++
		case closeCh:
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
