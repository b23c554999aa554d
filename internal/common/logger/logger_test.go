package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).With(map[string]interface{}{"sessionId": "s-1"})

	log.Info("turn handled", map[string]interface{}{"intent": "loan_inquiry"})
	log.WithError(errors.New("boom")).Error("turn failed", nil)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "turn handled", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "s-1", ctx["sessionId"])
		assert.Equal(t, "loan_inquiry", ctx["intent"])

		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "boom", entries[1].ContextMap()["error"])
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("verbose", "console")
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewTestLogger(t *testing.T) {
	log := NewTestLogger(t)
	log.Debug("debug line", map[string]interface{}{"k": 1})
	log.Warn("warn line", nil)
	NewNoOpLogger().Error("dropped", nil)
}
