package service

import (
	"fmt"
	"net/http"

	"mtglog/app/utils/redact"
)

const maxErrorDetail = 500

// StageError 阶段失败，携带对调用方的状态码与说明
type StageError struct {
	Status  int
	Message string
	Details string
	Err     error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Details == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func badRequest(message, details string) *StageError {
	return &StageError{Status: http.StatusBadRequest, Message: message, Details: details}
}

func notFound(message string) *StageError {
	return &StageError{Status: http.StatusNotFound, Message: message}
}

func internal(message string, err error) *StageError {
	return &StageError{Status: http.StatusInternalServerError, Message: message, Details: detail(err), Err: err}
}

func badGateway(message string, err error) *StageError {
	return &StageError{Status: http.StatusBadGateway, Message: message, Details: detail(err), Err: err}
}

// misconfigured 配置缺失只返回通用说明，细节写日志
func misconfigured(what string) *StageError {
	return &StageError{
		Status:  http.StatusInternalServerError,
		Message: "server misconfigured",
		Err:     fmt.Errorf("缺少配置: %s", what),
	}
}

func notActionable(details string) *StageError {
	return badRequest("task not actionable", details)
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return redact.Truncate(redact.Error(err), maxErrorDetail)
}
