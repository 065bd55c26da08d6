package logger

import (
	"io"
	"os"
	"strings"

	"budget/config"

	"github.com/sirupsen/logrus"
)

// Log 全局日志实例，未调用 Init 前使用默认配置
var Log = newLogger(config.LogConfig{}, os.Stdout)

// Init 根据配置初始化全局日志
func Init(cfg config.LogConfig) *logrus.Logger {
	Log = newLogger(cfg, os.Stdout)
	return Log
}

func newLogger(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// Component 返回带组件字段的日志入口
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
