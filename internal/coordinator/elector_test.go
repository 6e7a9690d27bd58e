package coordinator

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestElectorIsPrimaryDefaultsFalse(t *testing.T) {
	el := &Elector{group: "test", logger: discardLogger()}
	if el.IsPrimary() {
		t.Fatal("a fresh Elector must not report primary before any lease is won")
	}
	if el.Settling() {
		t.Fatal("a fresh Elector must not report settling before any transition")
	}
}

func TestElectorSettleFromPrimaryMarksSettling(t *testing.T) {
	el := &Elector{group: "test", logger: discardLogger()}
	el.isPrimary = true

	el.settle(false)

	if el.IsPrimary() {
		t.Fatal("settle(false) must clear IsPrimary")
	}
	if !el.Settling() {
		t.Fatal("a demotion must mark the replica as settling")
	}
}

func TestElectorSettleWithoutTransitionStaysQuiet(t *testing.T) {
	el := &Elector{group: "test", logger: discardLogger()}
	el.isPrimary = false

	el.settle(false)

	if el.Settling() {
		t.Fatal("settle(false) from an already-secondary state is not a transition")
	}
}

func TestElectorSubscribeReceivesNotification(t *testing.T) {
	el := &Elector{group: "test", logger: discardLogger()}
	ch := el.Subscribe()

	el.isPrimary = true
	el.notifySubscribers(true)

	select {
	case got := <-ch:
		if !got {
			t.Fatalf("got %v, want true", got)
		}
	default:
		t.Fatal("expected a notification on the subscribed channel")
	}
}

func TestElectorKeyNamesAreGroupScoped(t *testing.T) {
	el := &Elector{group: "watchdog-prod"}
	if el.leaseKey() != "watchdog:leader:lease:watchdog-prod" {
		t.Fatalf("leaseKey = %q", el.leaseKey())
	}
	if el.roleChannel() != "watchdog:leader:role:watchdog-prod" {
		t.Fatalf("roleChannel = %q", el.roleChannel())
	}
}
