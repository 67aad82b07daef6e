package service

import "github.com/sirupsen/logrus"

var logger = logrus.StandardLogger()

// SetLogger 设置服务层使用的日志记录器
func SetLogger(l *logrus.Logger) {
	if l != nil {
		logger = l
	}
}
