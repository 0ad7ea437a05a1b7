package log

import (
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// LogEncoding controls the output encoding, json (default) or console.
	LogEncoding = os.Getenv("LOG_ENCODING")

	zlog  = NewDefaultLogger()
	sugar = zlog.Sugar()

	// aliases
	Printf  = sugar.Infof
	Println = sugar.Info

	Debug  = sugar.Debug
	Debugf = sugar.Debugf
	Infof  = sugar.Infof
	Info   = sugar.Info
	Warnf  = sugar.Warnf
	Warn   = sugar.Warn
	Error  = sugar.Error
	Errorf = sugar.Errorf
	Fatalf = sugar.Fatalf
	Fatal  = sugar.Fatal

	With         = sugar.With
	IsDebugLevel = zlog.Level() == zapcore.DebugLevel
)

func NewDefaultLogger() *zap.Logger {
	if LogEncoding == "" {
		LogEncoding = "json"
	}
	logLevel := parseToAtomicLevel(os.Getenv("LOG_LEVEL"))
	stdoutSink, _, err := zap.Open("stdout")
	if err != nil {
		log.Fatal(err)
	}
	stderrSink, _, err := zap.Open("stderr")
	if err != nil {
		log.Fatal(err)
	}
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:       "level",
		TimeKey:        "timestamp",
		NameKey:        "logger",
		CallerKey:      "logger",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), stdoutSink, logLevel)
	if LogEncoding == "console" {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), stdoutSink, logLevel)
	}
	return zap.New(core,
		zap.ErrorOutput(stderrSink),
		zap.AddCaller(),
	)
}

func parseToAtomicLevel(level string) zap.AtomicLevel {
	logLevel := zap.NewAtomicLevel()
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		logLevel.SetLevel(zapcore.DebugLevel)
	case "WARN":
		logLevel.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		logLevel.SetLevel(zapcore.ErrorLevel)
	default:
		logLevel.SetLevel(zapcore.InfoLevel)
	}
	return logLevel
}

// Sync flushes any buffered log entries.
func Sync() error { return zlog.Sync() }
