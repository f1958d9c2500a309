package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultLevel 未設定或無法解析時使用的等級
const DefaultLevel = zerolog.InfoLevel

// Config 日誌設定
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json 或 console
}

// New 依照設定建立 logger，輸出到 stderr
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter 依照設定建立寫到 w 的 logger
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel 解析等級字串，失敗時回傳 DefaultLevel
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return DefaultLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return DefaultLevel
	}
	return lvl
}

type loggerKey struct{}

// With 把 logger 放進 context，之後可以用 From 取回
func With(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From 取回 context 中的 logger，沒有的話回傳停用的 logger
func From(ctx context.Context) *zerolog.Logger {
	return FromOr(ctx, zerolog.Nop())
}

// FromOr 取回 context 中的 logger，沒有的話回傳 fallback
func FromOr(ctx context.Context, fallback zerolog.Logger) *zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return &l
	}
	return &fallback
}
