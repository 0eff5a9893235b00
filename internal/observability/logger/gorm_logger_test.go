package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("  select * from usage_records"))
	assert.Equal(t, "DELETE", operationFromSQL("(DELETE FROM alerts WHERE owner_id = 1)"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig(false))

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM accounts", 0
	}, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO accounts", 0
	}, errors.New("boom"))
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "gorm.query", logs.All()[0].Message)
}

func TestGormLoggerFiltersParams(t *testing.T) {
	l := NewGormLogger(zap.NewNop(), DefaultGormLoggerConfig(true))
	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE code = ?", "123456")
	assert.Equal(t, "SELECT 1 WHERE code = ?", sql)
	assert.Nil(t, params)
}
