package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeFmt = "2006/01/02 15:04:05.000"

// stdout is swapped in tests.
var stdout = func() io.Writer { return os.Stdout }

// Config selects level and optional file output.
type Config struct {
	Level string
	App   string
	Dir   string
	File  bool
}

// New builds a console logger, teeing into rotated files when cfg.File is set.
// An unparsable level falls back to info.
func New(cfg Config) *zap.Logger {
	if cfg.App == "" {
		cfg.App = "spin-wheel"
	}
	lv := zap.NewAtomicLevel()
	if err := lv.UnmarshalText([]byte(cfg.Level)); err != nil {
		lv.SetLevel(zapcore.InfoLevel)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(false)), zapcore.Lock(zapcore.AddSync(stdout())), lv),
	}
	if cfg.File {
		name := filepath.Join(cfg.Dir, cfg.App)
		cores = append(cores,
			fileCore(name+".log", lv),
			fileCore(name+"_error.log", zap.ErrorLevel),
		)
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).With(zap.String("app", cfg.App))
}

func fileCore(file string, lv zapcore.LevelEnabler) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     10,
		Compress:   true,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(true)), zapcore.AddSync(w), lv)
}

func encoderConfig(file bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeFmt))
	}
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	if file {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.ConsoleSeparator = " "
	}
	return cfg
}
