package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

// observedGormLogger builds a GormLogger writing into an in-memory
// observer at the given zap level.
func observedGormLogger(zapLevel zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapLevel)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

// traceQuery runs Trace for a canned query completing now.
func traceQuery(gormLog *GormLogger, ctx context.Context, sql string, rows int64, err error) {
	gormLog.Trace(ctx, time.Now(), func() (string, int64) {
		return sql, rows
	}, err)
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	assert.NotNil(t, gormLog)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
}

func TestGormLoggerWithOptions(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, gormLog.slowThreshold)
	assert.False(t, gormLog.ignoreRecordNotFoundError)
}

func TestGormLogger_LogMode(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	newLogger := gormLog.LogMode(gormlogger.Warn)

	// LogMode copies; the original keeps its level.
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)

	newGormLog, ok := newLogger.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, newGormLog.logLevel)
}

func TestGormLogger_Info(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	gormLog.Info(context.Background(), "test message %s", "value")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "test message value")
}

func TestGormLogger_Info_Suppressed(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.InfoLevel, gormlogger.Silent)

	gormLog.Info(context.Background(), "test message")

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Warn(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn)

	gormLog.Warn(context.Background(), "warning message %d", 42)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "warning message 42")
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
}

func TestGormLogger_Error(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

	gormLog.Error(context.Background(), "error message")

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.ErrorLevel, logs[0].Level)
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error)

	traceQuery(gormLog, context.Background(), "SELECT * FROM product_instances", 0, errors.New("connection reset"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "SQL Error")
}

func TestGormLogger_Trace_RecordNotFoundIgnored(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.ErrorLevel, gormlogger.Error,
		WithIgnoreRecordNotFoundError(true))

	traceQuery(gormLog, context.Background(), "SELECT * FROM product_instances WHERE id = ?", 0, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.WarnLevel, gormlogger.Warn,
		WithSlowThreshold(1*time.Nanosecond))

	// Begin a second ago so any threshold trips.
	gormLog.Trace(context.Background(), time.Now().Add(-1*time.Second), func() (string, int64) {
		return "SELECT * FROM product_instances", 10
	}, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "SLOW SQL")
}

func TestGormLogger_Trace_NormalQuery(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

	traceQuery(gormLog, context.Background(), "SELECT * FROM product_instances", 5, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "SQL Query")
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Silent)

	traceQuery(gormLog, context.Background(), "SELECT * FROM product_instances", 5, nil)

	assert.Empty(t, recorded.All())
}

func TestGormLogger_Trace_WithRequestID(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-accrual-7")
	traceQuery(gormLog, ctx, "SELECT * FROM product_instances", 5, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	got, ok := stringField(&logs[0], "request_id")
	require.True(t, ok, "request_id should be in log fields")
	assert.Equal(t, "req-accrual-7", got)
}

func TestGormLogger_Trace_WithTenantID(t *testing.T) {
	gormLog, recorded := observedGormLogger(zapcore.DebugLevel, gormlogger.Info)

	ctx := context.WithValue(context.Background(), TenantIDKey, "tenant-abc")
	traceQuery(gormLog, ctx, "SELECT * FROM product_definitions WHERE tenant_id = $1", 2, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	got, ok := stringField(&logs[0], "tenant_id")
	require.True(t, ok, "tenant_id should be in log fields")
	assert.Equal(t, "tenant-abc", got)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	gormLog, _ := observedGormLogger(zapcore.InfoLevel, gormlogger.Info)

	var _ gormlogger.Interface = gormLog
}
