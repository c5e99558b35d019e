package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/oakwood-commons/archsearch/pkg/settings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Define an unexported custom type for the context key to prevent collisions.
type loggerContextKey struct{}

const (
	RootCommandKey = "root_command"
	SubCommandKey  = "sub_command"
	CommitKey      = "commit"
	VersionKey     = "version"
	BuildTimeKey   = "build_time"
	GoVersionKey   = "go_version"
	TimeStampKey   = "timestamp"
	MessageKey     = "message"
	CategoryKey    = "category"
	QueryKey       = "query"
	GenerationKey  = "generation"
	RequestIDKey   = "request_id"
)

var (
	once sync.Once // Ensures Get initializes only once

	// globalZapLogger is the underlying *zap.Logger for explicit Zap-specific operations like Sync().
	globalZapLogger *zap.Logger

	// globalLogrLogger is the logr.Logger instance that application code will primarily use
	// if not retrieving from context.
	globalLogrLogger *logr.Logger

	// closeSink releases a file sink opened by ToFile.
	closeSink = func() {}

	// defaultNoopLogger is a logger that does nothing, used as a fallback.
	defaultNoopLogger logr.Logger = logr.Discard()
)

// Option selects where log entries are written.
type Option func(*sinkOptions)

type sinkOptions struct {
	writer  zapcore.WriteSyncer
	path    string
	discard bool
}

// ToFile appends log entries to the file at path. An empty path is ignored.
func ToFile(path string) Option {
	return func(o *sinkOptions) {
		if path != "" {
			o.path = path
		}
	}
}

// ToWriter sends log entries to w.
func ToWriter(w io.Writer) Option {
	return func(o *sinkOptions) {
		o.writer = zapcore.AddSync(w)
	}
}

// Discarding drops log entries unless a file sink is configured. The
// interactive overlay uses it so stray lines never land on the screen.
func Discarding() Option {
	return func(o *sinkOptions) {
		o.discard = true
	}
}

// resolve picks the sink: file, then explicit writer, then discard, then stderr.
func (o sinkOptions) resolve() (zapcore.WriteSyncer, func()) {
	if o.path != "" {
		ws, closeFn, err := zap.Open(o.path)
		if err == nil {
			return ws, closeFn
		}
		fmt.Fprintf(os.Stderr, "WARNING: cannot open log file %s: %v\n", o.path, err)
	}
	if o.writer != nil {
		return zapcore.Lock(o.writer), func() {}
	}
	if o.discard {
		return zapcore.AddSync(io.Discard), func() {}
	}
	return zapcore.Lock(os.Stderr), func() {}
}

// Get initializes the global Zap and Logr loggers.
// It can only be called once. Subsequent calls return the same logger and
// ignore their arguments.
// logLevel follows zapcore levels: -1 debug, 0 info.
func Get(logLevel int8, opts ...Option) *logr.Logger {
	once.Do(func() {
		var so sinkOptions
		for _, opt := range opts {
			opt(&so)
		}
		sink, closeFn := so.resolve()
		closeSink = closeFn

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderCfg.TimeKey = TimeStampKey
		encoderCfg.MessageKey = MessageKey

		minimumLogLevel := zapcore.Level(logLevel)

		goVersion := "unknown"
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			goVersion = buildInfo.GoVersion
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			sink,
			zap.NewAtomicLevelAt(minimumLogLevel),
		).With(
			[]zapcore.Field{
				zap.String(CommitKey, settings.VersionInformation.Commit),
				zap.String(VersionKey, settings.VersionInformation.BuildVersion),
				zap.String(BuildTimeKey, settings.VersionInformation.BuildTime),
				zap.String(GoVersionKey, goVersion),
			},
		)

		globalZapLogger = zap.New(core,
			zap.AddCaller(),
			zap.AddStacktrace(zap.ErrorLevel),
			zap.WithFatalHook(zapcore.WriteThenPanic),
		)

		gl := zapr.NewLogger(globalZapLogger)
		globalLogrLogger = &gl
	})
	if globalLogrLogger == nil {
		return &defaultNoopLogger
	}
	return globalLogrLogger
}

// WithLogger returns a new context with the provided logr.Logger attached.
// If the context already contains the same logger instance, it returns the original context.
func WithLogger(ctx context.Context, log *logr.Logger) context.Context {
	if lp, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok {
		if lp == log {
			return ctx
		}
	}
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext retrieves the logr.Logger from the context, falling back to the
// global logger and then to a no-op logger.
func FromContext(ctx context.Context) *logr.Logger {
	if log, ok := ctx.Value(loggerContextKey{}).(*logr.Logger); ok {
		return log
	} else if log := globalLogrLogger; log != nil {
		return log
	}
	return &defaultNoopLogger
}

// Sync flushes any buffered log entries and releases a file sink.
// Call it before the application exits.
func Sync() {
	if globalZapLogger != nil {
		if err := globalZapLogger.Sync(); err != nil && !isIgnorableSyncError(err) {
			fmt.Fprintf(os.Stderr, "WARNING: failed to sync zap logger: %v\n", err)
		}
	}
	closeSink()
	closeSink = func() {}
}

// isIgnorableSyncError returns true for common Sync errors on pipes/TTYs.
// Windows consoles can return ERROR_INVALID_HANDLE wrapped in *os.PathError,
// which does not compare equal to syscall.EINVAL, so we also string-match.
func isIgnorableSyncError(err error) bool {
	if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EIO) || errors.Is(err, syscall.EBADF) {
		return true
	}
	return strings.Contains(err.Error(), "The handle is invalid")
}

// GetGlobalLogger returns the globally configured logr.Logger, or a no-op
// logger if Get has not been called.
func GetGlobalLogger() *logr.Logger {
	if globalLogrLogger != nil {
		return globalLogrLogger
	}
	return &defaultNoopLogger
}

func GetNoopLogger() *logr.Logger {
	return &defaultNoopLogger
}

// WithValues returns a new logr.Logger with additional key-value pairs.
func WithValues(lgr *logr.Logger, keysAndValues ...any) *logr.Logger {
	nlgr := lgr.WithValues(keysAndValues...)
	return &nlgr
}
