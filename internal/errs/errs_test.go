package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := E(KindNotFound, "store.GetTask", "task T0001")
	wrapped := fmt.Errorf("loading schedule: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindNotFound)
	}

	if got := KindOf(errors.New("disk full")); got != KindSystem {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindSystem)
	}

	if got := KindOf(context.Canceled); got != KindCancelled {
		t.Errorf("KindOf(context.Canceled) = %q, want %q", got, KindCancelled)
	}

	if got := KindOf(nil); got != Kind("") {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrapf(KindParsing, "decompose.Split", errors.New("unexpected token"), "task %s", "T0001")
	msg := err.Error()
	if msg != "decompose.Split: parsing: task T0001: unexpected token" {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindSystem, "store.Init", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
