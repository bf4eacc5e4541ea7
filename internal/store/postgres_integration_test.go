//go:build postgres_integration

package store

import (
    "os"
    "testing"

    "routecost/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.MigrateDir("../../db/migrations"); err != nil { t.Fatalf("MigrateDir: %v", err) }
    q, err := p.SaveQuote(t.Context(), model.Quote{TenantID: "t_it", NetworkID: "n", Order: map[string]float64{"A": 3}, Demand: map[string]float64{"C1": 3}, MinimumCost: 60, Route: []string{"L1", "C1", "L1"}, RoutesEvaluated: 1})
    if err != nil { t.Fatalf("SaveQuote: %v", err) }
    got, err := p.GetQuote(t.Context(), "t_it", q.ID)
    if err != nil { t.Fatalf("GetQuote: %v", err) }
    if got.MinimumCost != 60 || len(got.Route) != 3 { t.Fatalf("unexpected quote %+v", got) }
    if _, _, err := p.ListQuotes(t.Context(), "t_it", "", 1); err != nil { t.Fatalf("ListQuotes: %v", err) }
    if _, err := p.QuoteStats(t.Context(), "t_it"); err != nil { t.Fatalf("QuoteStats: %v", err) }
}
