package jsonhelper

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("输出中没有可解析的 JSON 对象")

// FirstObject 返回文本中第一个括号配平的 {...} 子串，会跳过字符串字面量内的括号
func FirstObject(raw string) (string, bool) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// Decode 提取第一个 JSON 对象并解码到 v，返回规范化后的原始字节
func Decode(raw string, v any) (json.RawMessage, error) {
	obj, ok := FirstObject(raw)
	if !ok {
		return nil, ErrNoJSONObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return nil, err
	}
	return json.RawMessage(obj), nil
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripFences 去掉独占一行的 markdown 代码块标记，字符串值内的 ``` 保留
func stripFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
