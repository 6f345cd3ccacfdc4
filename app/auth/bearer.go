package auth

import (
	"crypto/subtle"
	"strings"
)

// BearerToken 从 Authorization 头中取出 token，格式不对时返回 false
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// SecretEqual 常量时间比较两个密钥
func SecretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// CheckBearer 校验 Authorization 头是否携带正确的共享密钥
func CheckBearer(header, secret string) bool {
	token, ok := BearerToken(header)
	if !ok {
		return false
	}
	return SecretEqual(token, secret)
}
