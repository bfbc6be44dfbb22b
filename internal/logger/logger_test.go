package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_IsNoop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.Log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger before Init")
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		level   string
		enabled zapcore.Level
		muted   zapcore.Level
		wantErr bool
	}{
		{level: "Info", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{level: "debug", enabled: zapcore.DebugLevel},
		{level: "WARN", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{level: " error ", enabled: zapcore.ErrorLevel, muted: zapcore.WarnLevel},
		{level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New()
			err := l.Init(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !l.Log.Core().Enabled(tt.enabled) {
				t.Errorf("expected %s to be enabled", tt.enabled)
			}
			if tt.enabled != zapcore.DebugLevel && l.Log.Core().Enabled(tt.muted) {
				t.Errorf("expected %s to be disabled", tt.muted)
			}
		})
	}
}
