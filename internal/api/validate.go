package api

import (
	"fmt"
	"math"
	"net/url"

	"routecost/internal/model"
	"routecost/internal/webhooks"
)

func validateQuoteRequest(req *model.QuoteRequest) error {
	if len(req.Order) == 0 {
		return fmt.Errorf("order must contain at least one product")
	}
	for p, q := range req.Order {
		if p == "" {
			return fmt.Errorf("empty product code")
		}
		if q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("invalid quantity for %s: %v", p, q)
		}
	}
	return nil
}

var knownEvents = map[string]struct{}{webhooks.EventQuoteComputed: {}}

func validateSubscriptionRequest(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("events must not be empty")
	}
	for _, e := range req.Events {
		if _, ok := knownEvents[e]; !ok {
			return fmt.Errorf("unknown event type: %s (allowed: %s)", e, webhooks.EventQuoteComputed)
		}
	}
	return nil
}
