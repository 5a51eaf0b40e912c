package ws

import (
	"encoding/json"
	"testing"

	"meethub/internal/service"
)

func TestSendFramesEventEnvelope(t *testing.T) {
	hub := NewHub()
	conn := &Connection{ParticipantID: "p1", Send: make(chan []byte, 4)}
	hub.Register(conn)

	ok := hub.Send("p1", service.EventUserJoined, service.UserPayload{ParticipantID: "p2"})
	if !ok {
		t.Fatal("send to connected participant failed")
	}

	var msg Message
	if err := json.Unmarshal(<-conn.Send, &msg); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if msg.Type != service.EventUserJoined {
		t.Fatalf("type: %s", msg.Type)
	}
	var payload service.UserPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.ParticipantID != "p2" {
		t.Fatalf("payload: %+v", payload)
	}
}

func TestSendToUnknownParticipant(t *testing.T) {
	hub := NewHub()

	if hub.Send("ghost", service.EventUserJoined, nil) {
		t.Fatal("send to unknown participant reported delivered")
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	conn := &Connection{ParticipantID: "p1", Send: make(chan []byte, 1)}
	hub.Register(conn)

	if !hub.Send("p1", service.EventUserJoined, nil) {
		t.Fatal("first send should fill the buffer")
	}
	if hub.Send("p1", service.EventUserJoined, nil) {
		t.Fatal("send into a full buffer reported delivered")
	}
}

func TestRegisterReplacesExistingConnection(t *testing.T) {
	hub := NewHub()
	old := &Connection{ParticipantID: "p1", Send: make(chan []byte, 1)}
	hub.Register(old)

	replacement := &Connection{ParticipantID: "p1", Send: make(chan []byte, 1)}
	hub.Register(replacement)

	if _, open := <-old.Send; open {
		t.Fatal("replaced connection's channel left open")
	}
	if !hub.Connected("p1") {
		t.Fatal("participant lost on reconnect")
	}

	// Unregister of the stale connection must not evict the live one.
	hub.Unregister(old)
	if !hub.Connected("p1") {
		t.Fatal("stale unregister removed live connection")
	}

	hub.Unregister(replacement)
	if hub.Connected("p1") {
		t.Fatal("participant still connected after unregister")
	}
}
