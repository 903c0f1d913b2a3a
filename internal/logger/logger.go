package logger

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	*logrus.Logger
	fileLogger *logrus.Logger // 日志目录不可写时为 nil，仅输出到控制台
}

var defaultLogger *Logger

func init() {
	defaultLogger = &Logger{
		Logger:     newConsoleLogger(),
		fileLogger: newFileLogger("logs"),
	}
}

func newConsoleLogger() *logrus.Logger {
	consoleLogger := logrus.New()
	consoleLogger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	consoleLogger.SetOutput(os.Stdout)
	consoleLogger.SetLevel(logrus.DebugLevel)
	return consoleLogger
}

func newFileLogger(logDir string) *logrus.Logger {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil
	}

	fileLogger := logrus.New()
	fileLogger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})
	fileLogger.SetLevel(logrus.InfoLevel)
	fileLogger.SetOutput(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, "tg2kb.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})
	return fileLogger
}

func (l *Logger) logf(level logrus.Level, format string, args ...any) {
	l.Logger.Logf(level, format, args...)
	if l.fileLogger != nil {
		l.fileLogger.Logf(level, format, args...)
	}
}

func Infof(format string, args ...any) {
	defaultLogger.logf(logrus.InfoLevel, format, args...)
}

func Warnf(format string, args ...any) {
	defaultLogger.logf(logrus.WarnLevel, format, args...)
}

func Errorf(format string, args ...any) {
	defaultLogger.logf(logrus.ErrorLevel, format, args...)
}

func Debugf(format string, args ...any) {
	defaultLogger.logf(logrus.DebugLevel, format, args...)
}

func Fatalf(format string, args ...any) {
	// 先落盘再退出
	if defaultLogger.fileLogger != nil {
		defaultLogger.fileLogger.Errorf(format, args...)
	}
	defaultLogger.Logger.Fatalf(format, args...)
}
