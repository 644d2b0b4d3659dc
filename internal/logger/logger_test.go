package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerEnvironments(t *testing.T) {
	for _, env := range []string{"", EnvLocal, EnvDev, EnvProd} {
		l, err := NewLogger(env, "")
		if err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
			continue
		}
		_ = l.Sync()
	}

	if _, err := NewLogger("staging", ""); err == nil {
		t.Error("unknown environment should fail")
	}
}

func TestNewLoggerLevel(t *testing.T) {
	l, err := NewLogger(EnvProd, "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Error("debug level should be enabled by override")
	}

	l, err = NewLogger(EnvLocal, "error")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zap.WarnLevel) {
		t.Error("warn should be disabled at error level")
	}

	if _, err := NewLogger(EnvProd, "verbose"); err == nil {
		t.Error("invalid level should fail")
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}
	if FromContext(WithLogger(context.Background(), nil)) == nil {
		t.Fatal("a stored nil logger should fall back to nop")
	}

	l := zap.NewExample()
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext should return the stored logger")
	}
}

func TestWithDrugTagsEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	ctx = WithFields(ctx, zap.String("run_id", "r1"))
	FromContext(WithDrug(ctx, "ibuprofen")).Info("matched")
	FromContext(ctx).Info("untagged")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["drug_id"] != "ibuprofen" || fields["run_id"] != "r1" {
		t.Errorf("Unexpected fields on tagged entry: %v", fields)
	}
	if _, ok := entries[1].ContextMap()["drug_id"]; ok {
		t.Error("WithDrug must not change the parent context")
	}
}
