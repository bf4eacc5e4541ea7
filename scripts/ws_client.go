// Package main runs a demo WebSocket client that watches quote events while
// posting a few orders.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/quotes/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("read:", err)
				return
			}
			switch msg.Type {
			case "next":
				log.Printf("event: %s", string(msg.Payload))
			case "complete":
				return
			default:
				log.Printf("%s", msg.Type)
			}
		}
	}()

	orders := []string{`{"A":3}`, `{"A":4,"B":2}`, `{"A":6,"G":6}`, `{"A":1,"G":1,"H":1,"I":3}`}
	for _, o := range orders {
		time.Sleep(300 * time.Millisecond)
		body := []byte(`{"order":` + o + `}`)
		req, _ := http.NewRequest(http.MethodPost, base+"/v1/quotes", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-Id", "t_demo")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatal(err)
		}
		var q struct {
			MinimumCost float64  `json:"minimumCost"`
			Route       []string `json:"route"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&q)
		_ = resp.Body.Close()
		log.Printf("POST %s -> %d cost=%v route=%v", o, resp.StatusCode, q.MinimumCost, q.Route)
	}

	time.Sleep(time.Second)
	_ = c.WriteJSON(wsMessage{Type: "complete", ID: "1"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
