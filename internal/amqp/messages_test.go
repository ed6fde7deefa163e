package amqp

import (
	"context"
	"testing"
)

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage("42", OpUpdate)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != "42" || got.Op != OpUpdate {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestChangeMessageFromJSONInvalid(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte("{")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	if err := c.PublishChange(context.Background(), "1", OpCreate); err != nil {
		t.Fatalf("nil client publish should be a no-op: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil client close should be a no-op: %v", err)
	}
}
