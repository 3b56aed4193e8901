package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供连接级请求的公共字段，供数据面日志复用。
func RequestFields(requestID, remote, method, path string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"remote":     remote,
		"method":     method,
		"path":       path,
		"cache_hit":  cacheHit,
	}
}
