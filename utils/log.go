package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions 日志配置, 对应配置文件中的 log 段
type LogOptions struct {
	Level       string `yaml:"level"`       // debug / info / warn / error
	FilePath    string `yaml:"filePath"`    // 为空时只输出到 stdout
	MaxSize     int    `yaml:"maxSize"`     // MB
	MaxBackups  int    `yaml:"maxBackups"`
	MaxAge      int    `yaml:"maxAge"`      // days
	Compress    bool   `yaml:"compress"`
	LogPayloads bool   `yaml:"logPayloads"` // 命中时打印响应体
}

// CustomFormatter 自定义日志格式
type CustomFormatter struct {
	logrus.JSONFormatter
}

// Format 实现自定义格式化
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	// 添加进程信息
	entry.Data["pid"] = os.Getpid()

	// 添加协程ID
	entry.Data["goroutine_id"] = getGoroutineID()

	return f.JSONFormatter.Format(entry)
}

var (
	Log  *logrus.Logger
	once sync.Once
	mu   sync.Mutex
)

func newLogger(opts LogOptions) (*logrus.Logger, error) {
	logger := logrus.New()

	logger.SetFormatter(&CustomFormatter{
		JSONFormatter: logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			// 只保留文件名和函数名
			CallerPrettyfier: func(frame *runtime.Frame) (string, string) {
				return filepath.Base(frame.Function), fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
			},
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		},
	})

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stdout
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    valueOr(opts.MaxSize, 10),
			MaxBackups: valueOr(opts.MaxBackups, 5),
			MaxAge:     valueOr(opts.MaxAge, 30),
			Compress:   opts.Compress,
		})
	}
	logger.SetOutput(out)
	logger.SetReportCaller(true)

	return logger, nil
}

// InitLogger replaces the global logger. Safe to call more than once.
func InitLogger(opts LogOptions) error {
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {})
	Log = logger
	return nil
}

// GetLogger returns the singleton logger instance
func GetLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	once.Do(func() {
		Log, _ = newLogger(LogOptions{})
	})
	return Log
}

func valueOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// getGoroutineID 获取当前协程ID
func getGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	// 解析协程ID
	var id uint64
	fmt.Sscanf(string(b), "goroutine %d", &id)
	return id
}
