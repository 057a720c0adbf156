package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

const commsPublisherTestPrefix = "events:comms_publisher_integration_test"

// startTestServer starts an in-process NATS server on a random port.
func startTestServer(t *testing.T) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   commsserver.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", commsPublisherTestPrefix, err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", commsPublisherTestPrefix)
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", commsPublisherTestPrefix, err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func subscribeEvents(t *testing.T, nc *comms.Conn, subject string) <-chan *BridgeEvent {
	t.Helper()
	received := make(chan *BridgeEvent, 4)
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var event BridgeEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("%s - failed to unmarshal: %v", commsPublisherTestPrefix, err)
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("%s - failed to subscribe: %v", commsPublisherTestPrefix, err)
	}
	t.Cleanup(func() { sub.Unsubscribe() })
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", commsPublisherTestPrefix, err)
	}
	return received
}

func TestCommsPublisher_Publish_DefaultPrefix(t *testing.T) {
	nc, cleanup := startTestServer(t)
	defer cleanup()

	received := subscribeEvents(t, nc, "snapkit.events.session.login")
	publisher := NewCommsPublisher(nc, nil)

	err := publisher.Publish(context.Background(), &BridgeEvent{
		Kind:      KindSessionLogin,
		Channel:   "snapkit",
		HostID:    "main-activity",
		Platform:  "android",
		Timestamp: "2025-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("%s - Publish failed: %v", commsPublisherTestPrefix, err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Kind != KindSessionLogin {
			t.Errorf("%s - Kind = %q, want %q", commsPublisherTestPrefix, got.Kind, KindSessionLogin)
		}
		if got.HostID != "main-activity" {
			t.Errorf("%s - HostID = %q, want main-activity", commsPublisherTestPrefix, got.HostID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s - timed out waiting for event", commsPublisherTestPrefix)
	}
}

func TestCommsPublisher_Publish_CustomPrefixWildcard(t *testing.T) {
	nc, cleanup := startTestServer(t)
	defer cleanup()

	received := subscribeEvents(t, nc, "custom.events.>")
	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{SubjectPrefix: "custom.events"})

	for _, kind := range []string{KindHostAttached, KindHostDetached} {
		if err := publisher.Publish(context.Background(), &BridgeEvent{Kind: kind, Channel: "snapkit"}); err != nil {
			t.Fatalf("%s - Publish(%s) failed: %v", commsPublisherTestPrefix, kind, err)
		}
	}
	nc.Flush()

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-received:
			got = append(got, ev.Kind)
		case <-time.After(5 * time.Second):
			t.Fatalf("%s - timed out, got %v", commsPublisherTestPrefix, got)
		}
	}
	if got[0] != KindHostAttached || got[1] != KindHostDetached {
		t.Errorf("%s - kinds = %v", commsPublisherTestPrefix, got)
	}
}
