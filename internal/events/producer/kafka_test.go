package producer

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"sessionguard/internal/events"
)

func TestNewKafkaProducer_Disabled(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
	}{
		{"no brokers", nil, "changes"},
		{"no topic", []string{"localhost:9092"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewKafkaProducer(tt.brokers, tt.topic)
			if p != nil {
				t.Fatalf("NewKafkaProducer = %v, want nil", p)
			}
			if err := p.Publish(context.Background(), events.ChangeEvent{Kind: events.KindBlock}); err != nil {
				t.Errorf("Publish on nil producer: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Errorf("Close on nil producer: %v", err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	at := time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		ev      events.ChangeEvent
		wantKey string
	}{
		{"keyed by user", events.ChangeEvent{Kind: events.KindBlock, Op: events.OpCreated, ID: "b1", UserID: "u1", At: at}, "u1"},
		{"policy falls back to id", events.ChangeEvent{Kind: events.KindPolicy, Op: events.OpCreated, ID: "p1", At: at}, "p1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Message(tt.ev)
			if err != nil {
				t.Fatalf("Message: %v", err)
			}
			if string(msg.Key) != tt.wantKey {
				t.Errorf("Key = %q, want %q", msg.Key, tt.wantKey)
			}
			if !msg.Time.Equal(at) {
				t.Errorf("Time = %v, want %v", msg.Time, at)
			}
			var got events.ChangeEvent
			if err := json.Unmarshal(msg.Value, &got); err != nil {
				t.Fatalf("decode value: %v", err)
			}
			if got.Kind != tt.ev.Kind || got.ID != tt.ev.ID {
				t.Errorf("value = %+v, want %+v", got, tt.ev)
			}
			if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != string(tt.ev.Kind) {
				t.Errorf("headers = %v, want kind and op", msg.Headers)
			}
		})
	}
}
