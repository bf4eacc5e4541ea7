package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"routecost/internal/model"
	"routecost/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []MarkRec
	fails []FailRec
}
type MarkRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type FailRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, MarkRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, FailRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventQuoteComputed, srv.URL, "secret", []byte(`{"id":"evt1"}`))
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotSig == "" || gotType != EventQuoteComputed {
		t.Fatalf("missing signature/type headers: sig=%q type=%q", gotSig, gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature does not verify")
	}
	if len(rs.marks) == 0 || !rs.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rs.marks)
	}
}

func TestWorkerQuoteHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(204)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	payload := []byte(`{"id":"evt_1","type":"quote.computed","tenantId":"t1","data":{"id":"q_9","networkId":"net_abc","minimumCost":84.5}}`)
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventQuoteComputed, srv.URL, "", payload)
	if err != nil {
		t.Fatal(err)
	}
	w.processOnce()

	want := map[string]string{
		HeaderEventType:   EventQuoteComputed,
		HeaderEventID:     "evt_1",
		HeaderDeliveryID:  id,
		HeaderAttempt:     "1",
		HeaderTenant:      "t1",
		HeaderQuoteID:     "q_9",
		HeaderNetworkID:   "net_abc",
		HeaderMinimumCost: "84.5",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Fatalf("%s: got %q want %q", k, got.Get(k), v)
		}
	}
	if got.Get(HeaderSignature) != "" {
		t.Fatalf("unsigned subscription got a signature")
	}
	if len(rs.marks) != 1 || !rs.marks[0].Success || rs.marks[0].Code != 204 {
		t.Fatalf("marks: %+v", rs.marks)
	}
}

func TestWorkerOtherEventsSkipQuoteHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", "other", srv.URL, "", []byte(`{"id":"evt_2","data":{"id":"x","networkId":"n"}}`))
	w.processOnce()
	if got.Get(HeaderEventID) != "evt_2" || got.Get(HeaderQuoteID) != "" || got.Get(HeaderNetworkID) != "" {
		t.Fatalf("headers: %v", got)
	}
}

func TestWorkerBadURLRetries(t *testing.T) {
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: http.DefaultClient, Stop: make(chan struct{}), MaxAttempts: 3}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventQuoteComputed, "http://[::1", "", []byte(`{}`))
	w.processOnce()
	if len(rs.marks) != 1 || rs.marks[0].Success || rs.marks[0].LastErr == "" {
		t.Fatalf("marks: %+v", rs.marks)
	}
}

func TestWorkerProcessOnce_RetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 2}
	id, _ := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventQuoteComputed, srv.URL, "", []byte(`{}`))
	w.processOnce()
	if len(rs.marks) != 1 || rs.marks[0].Success || rs.marks[0].Code != 500 {
		t.Fatalf("expected one retry mark, got: %+v", rs.marks)
	}
	// force the retry due now
	past := time.Now().Add(-time.Second)
	_ = rs.Memory.MarkWebhookDelivery(context.Background(), id, false, &past, "", 500, 0)
	w.processOnce()
	if len(rs.fails) == 0 {
		t.Fatalf("expected fail recorded")
	}
}

func TestPublisherEmit(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{EventQuoteComputed}, Secret: "s"})
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{"other"}})
	p := NewPublisher(m)
	if n := p.Emit(ctx, "t1", EventQuoteComputed, map[string]any{"minimumCost": 60}); n != 1 {
		t.Fatalf("want 1 delivery, got %d", n)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].URL != "http://a" {
		t.Fatalf("due: %+v", due)
	}
	var evt map[string]any
	if err := json.Unmarshal(due[0].Payload, &evt); err != nil {
		t.Fatal(err)
	}
	if evt["type"] != EventQuoteComputed || evt["tenantId"] != "t1" {
		t.Fatalf("payload: %v", evt)
	}
	if n := p.Emit(ctx, "t2", EventQuoteComputed, nil); n != 0 {
		t.Fatalf("tenant without subscriptions: %d", n)
	}
}
