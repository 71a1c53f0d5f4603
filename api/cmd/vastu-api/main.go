package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/config"
	"vastu-check/api/internal/handle"
	"vastu-check/api/internal/httpserver"
	"vastu-check/api/internal/store"
	"vastu-check/api/internal/telemetry"
	"vastu-check/api/internal/vastu"
)

func main() {
	log.SetPrefix("vastu-api ")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "vastu-api", cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	engines, def, err := cfg.Engines()
	if err != nil {
		log.Fatalf("engines: %v", err)
	}

	opt := handle.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		Timeout:        cfg.RequestTimeout,
		CacheTTL:       cfg.AnalysisCacheTTL,
	}

	// the cache is optional for the API; without a DSN every upload is analyzed
	var repo handle.AnalysisStore
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer db.Close()
		ar := store.NewAnalysisRepo(db, cfg.DBDriver)
		if err := ar.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema: %v", err)
		}
		repo = ar
		opt.Health = db.PingContext
		go purgeLoop(ctx, ar, cfg.AnalysisCacheTTL)
		log.Printf("analysis cache enabled (%s, ttl %v)", cfg.DBDriver, cfg.AnalysisCacheTTL)
	}

	an := analyze.New(vastu.Default, cfg.AnalyzeOptions())
	h := handle.New(an, engines, def, repo, opt)

	if err := httpserver.Run(ctx, ":"+cfg.Port, otelhttp.NewHandler(h.Routes(), "vastu-api")); err != nil {
		log.Printf("server: %v", err)
	}
}

func purgeLoop(ctx context.Context, repo *store.AnalysisRepo, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.PurgeOlderThan(ctx, ttl)
			switch {
			case err == nil && n > 0:
				log.Printf("purged %d stale analyses", n)
			case err != nil && !errors.Is(err, context.Canceled):
				log.Printf("purge: %v", err)
			}
		}
	}
}
