package hierarchy

import "testing"

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier()

	var a, b int
	n.Subscribe(func(ChangeEvent) { a++ })
	hb := n.Subscribe(func(ChangeEvent) { b++ })

	n.Publish(EventNodeChanged, "tenant-a")
	if a != 1 || b != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", a, b)
	}

	n.Unsubscribe(hb)
	n.Publish(EventSubtreeMoved, "tenant-a")
	if a != 2 {
		t.Errorf("remaining subscriber not called: %d", a)
	}
	if b != 1 {
		t.Errorf("unsubscribed handler was called: %d", b)
	}
}

func TestNotifierEventShape(t *testing.T) {
	n := NewNotifier()
	var got ChangeEvent
	n.Subscribe(func(ev ChangeEvent) { got = ev })

	n.Publish(EventNodeChanged, "tenant-a")
	if got.Kind != EventNodeChanged {
		t.Errorf("kind: got %s", got.Kind)
	}
	if got.TenantID != "tenant-a" {
		t.Errorf("tenant: got %s", got.TenantID)
	}
	if got.Timestamp.IsZero() {
		t.Errorf("timestamp not set")
	}
}

func TestNotifierUnsubscribeUnknownHandle(t *testing.T) {
	n := NewNotifier()
	n.Unsubscribe(42) // must not panic
	n.Publish(EventNodeChanged, "tenant-a")
}
