package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type SetupParams struct {
	LogLevel string
	// LogFile 非空时同时写入滚动日志文件
	LogFile string
	Output  io.Writer
}

// Setup 初始化默认 slog 日志，返回需要在退出时关闭的文件 writer（可能为 nil）
func Setup(params SetupParams) (*slog.Logger, io.Closer) {
	out := params.Output
	if out == nil {
		out = os.Stdout
	}

	var closer io.Closer
	if params.LogFile != "" {
		if !strings.HasSuffix(params.LogFile, ".log") {
			params.LogFile += ".log"
		}
		rotating := &lumberjack.Logger{
			Filename:   params.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closer = rotating
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: GetLevel(params.LogLevel),
	}))
	slog.SetDefault(logger)
	return logger, closer
}

// GetLevel 解析日志级别，未知值按 info 处理
func GetLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
