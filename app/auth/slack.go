package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

const (
	SlackSignatureHeader = "X-Slack-Signature"
	SlackTimestampHeader = "X-Slack-Request-Timestamp"

	slackVersion = "v0"
	slackMaxSkew = 5 * time.Minute
)

var (
	ErrMissingSignature = errors.New("missing slack signature headers")
	ErrStaleTimestamp   = errors.New("slack request timestamp out of range")
	ErrBadSignature     = errors.New("slack signature mismatch")
)

// SlackVerifier 校验 Slack 请求签名
type SlackVerifier struct {
	secret string
	now    func() time.Time
}

// NewSlackVerifier 创建签名校验器
func NewSlackVerifier(secret string) *SlackVerifier {
	return &SlackVerifier{secret: secret, now: time.Now}
}

// WithClock 替换时钟，测试用
func (v *SlackVerifier) WithClock(now func() time.Time) *SlackVerifier {
	v.now = now
	return v
}

// Sign 计算 "v0=" + hex(HMAC_SHA256(secret, "v0:ts:body"))
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(slackVersion + ":" + timestamp + ":"))
	mac.Write(body)
	return slackVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify 对原始请求体校验签名，body 必须是未经解析的字节
func (v *SlackVerifier) Verify(timestamp, signature string, body []byte) error {
	if v.secret == "" || timestamp == "" || signature == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleTimestamp
	}
	skew := v.now().Sub(time.Unix(ts, 0))
	if skew > slackMaxSkew || skew < -slackMaxSkew {
		return ErrStaleTimestamp
	}

	expected := Sign(v.secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
