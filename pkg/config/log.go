package config

import "go.uber.org/zap"

var logger *zap.Logger

func init() {
	logger, _ = zap.NewProduction() // zap.NewDevelopment()
}

func GetLogger() *zap.Logger {
	return logger
}

// SetLogger 替换全局 logger，nil 被忽略
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}
