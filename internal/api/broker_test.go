package api

import (
    "os"
    "testing"
    "time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("t1")
    other := b.Subscribe("t2")

    evt := SSEEvent{Type: "quote.computed", Data: map[string]any{"minimumCost": 60.0}}
    b.Publish("t1", evt)

    select {
    case got := <-ch:
        if got.Type != evt.Type { t.Fatalf("got type %s, want %s", got.Type, evt.Type) }
        if got.Data["minimumCost"].(float64) != 60 { t.Fatalf("bad payload: %+v", got.Data) }
    case <-time.After(200 * time.Millisecond):
        t.Fatal("timeout waiting for event")
    }
    select {
    case got := <-other:
        t.Fatalf("other tenant received %+v", got)
    default:
    }

    b.Unsubscribe("t1", ch)
    if _, ok := <-ch; ok { t.Fatal("channel should be closed after unsubscribe") }
    // second unsubscribe is a no-op
    b.Unsubscribe("t1", ch)
    b.Unsubscribe("t2", other)
}

func TestBrokerDropsWhenFull(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("t1")
    defer b.Unsubscribe("t1", ch)
    for i := 0; i < cap(ch)+5; i++ {
        b.Publish("t1", SSEEvent{Type: "quote.computed"})
    }
    if len(ch) != cap(ch) { t.Fatalf("buffer should be full, got %d", len(ch)) }
}

func TestRedisBrokerRoundTrip(t *testing.T) {
    url := os.Getenv("REDIS_URL")
    if url == "" { t.Skip("REDIS_URL not set") }
    b, err := NewRedisBroker(url)
    if err != nil { t.Fatalf("NewRedisBroker: %v", err) }
    tenant := "t_test_" + time.Now().Format("150405.000000")
    ch := b.Subscribe(tenant)
    b.Publish(tenant, SSEEvent{Type: "quote.computed", Data: map[string]any{"id": "q1"}})
    select {
    case got := <-ch:
        if got.Type != "quote.computed" || got.Data["id"] != "q1" { t.Fatalf("got %+v", got) }
    case <-time.After(2 * time.Second):
        t.Fatal("timeout waiting for event")
    }
    b.Unsubscribe(tenant, ch)
}
