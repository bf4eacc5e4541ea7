package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "routecost/internal/api"
    "routecost/internal/buildinfo"
)

func main() {
    srvDeps, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    mux := srvDeps.Routes()

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(api.Instrument(mux)),
        ReadHeaderTimeout: 5 * time.Second,
    }

    n := srvDeps.Engine.Network()
    log.Printf("API listening on %s (version %s, network %s, hub %s, %d centers)", addr, buildinfo.Info()["version"], n.Fingerprint(), n.Hub, len(n.Centers()))
    // Start webhook worker
    worker := srvDeps.NewWebhookWorker()
    worker.Start()

    go func() {
        stop := make(chan os.Signal, 1)
        signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
        <-stop
        close(worker.Stop)
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := srv.Shutdown(ctx); err != nil { log.Printf("shutdown: %v", err) }
    }()

    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
        log.Fatalf("server error: %v", err)
    }
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        dur := time.Since(start)
        log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
    })
}
