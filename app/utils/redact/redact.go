// Package redact 在日志和错误中去掉签名参数与密钥
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

var urlWithQuery = regexp.MustCompile(`(https?://[^\s?"']+)\?[^\s"']*`)

// URL 去掉查询串，签名地址的凭证都在查询串里
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return urlWithQuery.ReplaceAllString(raw, "$1?REDACTED")
	}
	if u.RawQuery == "" {
		return raw
	}
	u.RawQuery = "REDACTED"
	u.User = nil
	return u.String()
}

// Text 去掉文本中所有 URL 的查询串，并替换给定的密钥
func Text(s string, secrets ...string) string {
	s = urlWithQuery.ReplaceAllString(s, "$1?REDACTED")
	for _, secret := range secrets {
		if len(secret) >= 4 {
			s = strings.ReplaceAll(s, secret, "[REDACTED]")
		}
	}
	return s
}

// Error 返回去敏后的错误文本
func Error(err error, secrets ...string) string {
	if err == nil {
		return ""
	}
	return Text(err.Error(), secrets...)
}

// Truncate 按字符截断
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
