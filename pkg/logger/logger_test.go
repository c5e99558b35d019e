package logger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogLevel is a valid zapcore.Level value for testing.
const mockLogLevel int8 = 0 // zapcore.InfoLevel

func TestGetReturnsSameInstanceOnSubsequentCalls(t *testing.T) {
	logger1 := Get(mockLogLevel, Discarding())
	logger2 := Get(-1)
	require.NotNil(t, logger1)
	assert.Same(t, logger1, logger2)
	assert.Same(t, logger1, GetGlobalLogger())
}

func TestGetReturnsNoopLoggerIfGlobalLoggerNil(t *testing.T) {
	Get(mockLogLevel, Discarding())
	orig := globalLogrLogger
	globalLogrLogger = nil
	defer func() { globalLogrLogger = orig }()

	assert.Same(t, GetNoopLogger(), Get(mockLogLevel))
	assert.Same(t, GetNoopLogger(), GetGlobalLogger())
	assert.Same(t, GetNoopLogger(), FromContext(context.Background()))
}

func TestWithLoggerRoundTrip(t *testing.T) {
	lgr := Get(mockLogLevel, Discarding())
	ctx := WithLogger(context.Background(), lgr)
	assert.Same(t, lgr, FromContext(ctx))

	assert.Equal(t, ctx, WithLogger(ctx, lgr), "same logger keeps the context")

	other := logr.Discard()
	replaced := WithLogger(ctx, &other)
	assert.Same(t, &other, FromContext(replaced))
}

func TestWithValues(t *testing.T) {
	base := logr.Discard()
	got := WithValues(&base, QueryKey, "greve")
	require.NotNil(t, got)
	assert.NotSame(t, &base, got)
}

func TestSinkResolution(t *testing.T) {
	var buf bytes.Buffer
	ws, closeFn := sinkOptions{writer: nil, discard: true}.resolve()
	require.NotNil(t, ws)
	closeFn()

	var so sinkOptions
	ToWriter(&buf)(&so)
	ws, closeFn = so.resolve()
	_, err := ws.Write([]byte("hello"))
	require.NoError(t, err)
	closeFn()
	assert.Equal(t, "hello", buf.String())

	path := filepath.Join(t.TempDir(), "archsearch.log")
	so = sinkOptions{}
	ToFile(path)(&so)
	ToFile("")(&so)
	assert.Equal(t, path, so.path, "empty path does not clear the file sink")
	ws, closeFn = so.resolve()
	_, err = ws.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, ws.Sync())
	closeFn()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestIsIgnorableSyncError(t *testing.T) {
	assert.True(t, isIgnorableSyncError(syscall.ENOTTY))
	assert.True(t, isIgnorableSyncError(&os.PathError{Op: "sync", Path: "/dev/stderr", Err: syscall.EINVAL}))
	assert.True(t, isIgnorableSyncError(errors.New("sync: The handle is invalid.")))
	assert.False(t, isIgnorableSyncError(errors.New("disk full")))
}
