package config

import (
	"errors"
	"fmt"
)

// FieldError 提供字段名与错误原因，便于 CLI 向用户反馈。
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if c.ResourceRoot == "" {
		return newFieldError("ResourceRoot", "不能为空")
	}
	if c.MaxCacheSize < 0 {
		return newFieldError("MaxCacheSize", "不能为负数")
	}
	if c.ReadTimeout.DurationValue() < 0 {
		return newFieldError("ReadTimeout", "不能为负数")
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		return newFieldError("AdminPort", "必须在 0-65535")
	}
	if c.AdminPort != 0 && c.AdminPort == c.ListenPort {
		return newFieldError("AdminPort", "不能与 ListenPort 相同")
	}
	if c.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if c.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}

	return nil
}
