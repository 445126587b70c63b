package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBrokerDeliversToOtherMembers(t *testing.T) {
	broker := NewBroker()

	var first, second []Event
	a := broker.Attach()
	if err := a.Start(context.Background(), func(event Event) { first = append(first, event) }); err != nil {
		t.Fatalf("start a: %v", err)
	}
	b := broker.Attach()
	if err := b.Start(context.Background(), func(event Event) { second = append(second, event) }); err != nil {
		t.Fatalf("start b: %v", err)
	}

	if err := a.Send(Event{Type: TypeCampaignSaved, Revision: "r1", ClientID: "tab-a"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(first) != 0 {
		t.Fatalf("expected no self delivery, got %d", len(first))
	}
	if len(second) != 1 {
		t.Fatalf("expected delivery to the other member, got %d", len(second))
	}
	if second[0].Revision != "r1" || second[0].ClientID != "tab-a" {
		t.Fatalf("unexpected event: %+v", second[0])
	}
}

func TestClosedTransportStopsReceiving(t *testing.T) {
	broker := NewBroker()

	var got []Event
	a := broker.Attach()
	if err := a.Start(context.Background(), func(event Event) { got = append(got, event) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	b := broker.Attach()
	if err := b.Start(context.Background(), func(Event) {}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := b.Send(Event{Type: TypeCampaignSaved, Revision: "r1"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("expected no delivery after close, got %d", len(got))
	}
}

func TestNotifierAnnounceReachesSubscriber(t *testing.T) {
	broker := NewBroker()

	var got []Event
	receiver := New(broker.Attach())
	receiver.Subscribe(func(event Event) { got = append(got, event) })
	if err := receiver.Start(context.Background()); err != nil {
		t.Fatalf("start receiver: %v", err)
	}

	sender := New(broker.Attach())
	if err := sender.Start(context.Background()); err != nil {
		t.Fatalf("start sender: %v", err)
	}

	sender.Announce(Event{Type: TypeCampaignSaved, Revision: "r2", ClientID: "tab-b"})

	if len(got) != 1 || got[0].Revision != "r2" {
		t.Fatalf("expected announcement delivered, got %+v", got)
	}
}

type failingTransport struct{ startErr error }

func (f *failingTransport) Start(context.Context, Handler) error { return f.startErr }
func (f *failingTransport) Send(Event) error                     { return errors.New("send failed") }
func (f *failingTransport) Close() error                         { return nil }

func TestRemoteStartFailureDowngradesSilently(t *testing.T) {
	broker := NewBroker()

	notifier := New(broker.Attach())
	notifier.Subscribe(func(Event) {})
	if err := notifier.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	notifier.SetTransport(context.Background(), &failingTransport{startErr: errors.New("relay unreachable")})

	if !notifier.Downgraded() {
		t.Fatal("expected downgrade after remote start failure")
	}
	if notifier.LastError() == nil {
		t.Fatal("expected failure recorded for diagnostics")
	}

	// Announce still works over the local channel and never errors.
	notifier.Announce(Event{Type: TypeCampaignSaved, Revision: "r1"})
}

func TestAnnounceSwallowsSendErrors(t *testing.T) {
	notifier := New(&sendFailTransport{})
	if err := notifier.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	notifier.Announce(Event{Type: TypeCampaignSaved, Revision: "r1"})

	if notifier.LastError() == nil {
		t.Fatal("expected send failure recorded")
	}
}

type sendFailTransport struct{}

func (s *sendFailTransport) Send(Event) error { return errors.New("send failed") }
func (s *sendFailTransport) Close() error     { return nil }
func (s *sendFailTransport) Start(context.Context, Handler) error {
	return nil
}

func TestWebsocketTransportRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Echo each event back, as the relay does for other clients.
		for {
			var event Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	transport := NewWebsocketTransport("ws" + strings.TrimPrefix(server.URL, "http"))
	received := make(chan Event, 1)
	if err := transport.Start(context.Background(), func(event Event) { received <- event }); err != nil {
		t.Fatalf("start transport: %v", err)
	}
	defer transport.Close()

	sent := Event{Type: TypeCampaignSaved, Revision: "r5", CampaignID: "camp-1", ClientID: "tab-a"}
	if err := transport.Send(sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-received:
		if got.Revision != sent.Revision || got.ClientID != sent.ClientID {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed event")
	}
}

func TestWebsocketTransportDialFailure(t *testing.T) {
	transport := NewWebsocketTransport("ws://127.0.0.1:1/relay")
	if err := transport.Start(context.Background(), nil); err == nil {
		t.Fatal("expected dial error")
	}
}
