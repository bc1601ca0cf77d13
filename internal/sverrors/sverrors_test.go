package sverrors

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(NotFound, "session x not found")
	if KindOf(err) != NotFound {
		t.Errorf("KindOf = %s, want NotFound", KindOf(err))
	}

	if KindOf(errors.New("plain")) != Internal {
		t.Errorf("KindOf(plain error) = %s, want Internal", KindOf(errors.New("plain")))
	}
}

func TestCallerMessage_HidesInternalCause(t *testing.T) {
	cause := errors.New("open /home/alice/.sovereign/x: permission denied")
	err := Wrap(Internal, "writing insight", cause)

	msg := CallerMessage(err)
	if msg != "internal error" {
		t.Errorf("CallerMessage = %q, want generic message hiding path", msg)
	}
}

func TestCallerMessage_PassesThroughOtherKinds(t *testing.T) {
	err := New(InvalidInput, "confidence is required for layer=hypothesis")
	if got := CallerMessage(err); got != err.Message {
		t.Errorf("CallerMessage = %q, want %q", got, err.Message)
	}
}

func TestIs(t *testing.T) {
	err := New(Conflict, "lock contention")
	if !Is(err, Conflict) {
		t.Error("Is(err, Conflict) = false, want true")
	}
	if Is(err, Timeout) {
		t.Error("Is(err, Timeout) = true, want false")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, "writing audit entry", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through Unwrap to cause")
	}
}
