package provider

import (
	"testing"

	"github.com/mmrzaf/rowgen/internal/errors"
	"github.com/mmrzaf/rowgen/internal/random"
)

func TestLifecycleReady(t *testing.T) {
	l := NewLifecycle("demo")
	if err := l.Ready(); !errors.Is(err, errors.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded before load, got %v", err)
	}
	l.MarkLoaded()
	if err := l.Ready(); !errors.Is(err, errors.ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded without randomizer, got %v", err)
	}
	l.InitializeRandomizer(random.NewSeeded(1))
	if err := l.Ready(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.State() != Loaded {
		t.Fatalf("state = %v", l.State())
	}
}

func TestUnsupportedHelpers(t *testing.T) {
	if _, err := (Unordered{}).RangedRowValue(1, 2, None); !errors.Is(err, errors.ErrUnsupportedOperation) {
		t.Fatalf("RangedRowValue: %v", err)
	}
	if _, err := (NoIdentity{}).ValueID("x"); !errors.Is(err, errors.ErrUnsupportedOperation) {
		t.Fatalf("ValueID: %v", err)
	}
}

func TestDecodeParamsRejectsUnknownKeys(t *testing.T) {
	var cfg struct {
		Min int64 `mapstructure:"min"`
	}
	if err := DecodeParams("uniform_int", map[string]interface{}{"min": 3}, &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Min != 3 {
		t.Fatalf("min = %d", cfg.Min)
	}
	err := DecodeParams("uniform_int", map[string]interface{}{"mni": 3}, &cfg)
	if !errors.Is(err, errors.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestContextArgument(t *testing.T) {
	var nilCtx *Context
	if _, ok := nilCtx.Argument("x"); ok {
		t.Fatal("nil context should have no arguments")
	}
	ctx := &Context{Arguments: map[string][]interface{}{"text": {"a", "b"}}}
	v, ok := ctx.Argument("text")
	if !ok || v != "a" {
		t.Fatalf("Argument = %v, %v", v, ok)
	}
	if got := len(ctx.ArgumentValues("text")); got != 2 {
		t.Fatalf("ArgumentValues len = %d", got)
	}
}
