package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.InfoLevel)

	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return l
}

func Info(args ...interface{})                 { log.Info(args...) }
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

func Warn(args ...interface{})                 { log.Warn(args...) }
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

func Error(args ...interface{})                 { log.Error(args...) }
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

func Debug(args ...interface{})                 { log.Debug(args...) }
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

func Fatal(args ...interface{}) { log.Fatal(args...) }
