package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"tada-pipeline/internal/api"
	"tada-pipeline/internal/config"
	"tada-pipeline/internal/decoder"
	"tada-pipeline/internal/delivery"
	"tada-pipeline/internal/pipeline"
	"tada-pipeline/internal/realtime"
	"tada-pipeline/internal/runtime"
	"tada-pipeline/internal/store"
	"tada-pipeline/internal/stream"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Initializing Tada Pipeline Runtime...")
	log.Printf("DB: %s", redactDatabaseURL(cfg.DatabaseURL))
	log.Printf("API Port: %d", cfg.APIPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Persistence
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		log.Fatalf("Schema setup failed: %v", err)
	}

	// 2. Decoder registry (schemas are embedded, loaded at construction)
	registry := decoder.NewRegistry()
	decoder.RegisterAll(registry)
	log.Printf("Registered %d program decoders", len(registry.Decoders()))

	// 3. Realtime bus + delivery dispatcher
	hub := realtime.NewHub()
	defer hub.Close()

	dispatcherOpts := []delivery.Option{delivery.WithHub(hub)}
	var svixBackend *delivery.SvixBackend
	if cfg.SvixAPIKey != "" {
		svixBackend, err = delivery.NewSvixBackend(cfg.SvixAPIKey, cfg.SvixServerURL)
		if err != nil {
			log.Fatalf("Failed to init svix backend: %v", err)
		}
		dispatcherOpts = append(dispatcherOpts, delivery.WithSvix(svixBackend))
		log.Println("Svix delivery backend enabled")
	}
	dispatcher := delivery.NewDispatcher(dispatcherOpts...)

	// 4. Pipeline index + orchestrator
	index := pipeline.NewIndex()
	orch := runtime.NewOrchestrator(registry, index, dispatcher, runtime.Config{
		Workers: cfg.Workers,
	})

	// 5. Initial pipeline set + periodic re-sync
	syncer := store.NewSyncer(st, index, time.Duration(cfg.SyncIntervalSec)*time.Second)
	if err := syncer.SyncOnce(ctx); err != nil {
		log.Fatalf("Failed to load pipelines: %v", err)
	}

	apiServer := api.NewServer(orch, st, hub, api.Config{
		Port:           cfg.APIPort,
		JWTSecret:      cfg.JWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Svix:           svixBackend,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.Run(ctx)
	}()

	// 6. Consume the stream. The production feed is the external gRPC
	// subscription client calling orch.Submit; TX_STREAM=stdin drives the
	// runtime from line-delimited envelope JSON instead.
	if strings.EqualFold(os.Getenv("TX_STREAM"), "stdin") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src := stream.NewReaderSource(os.Stdin)
			if err := src.Run(ctx, orch.Submit); err != nil && ctx.Err() == nil {
				log.Printf("[stream] reader stopped: %v", err)
			}
		}()
	}

	<-sigChan
	log.Println("Shutting down...")
	apiServer.Shutdown(ctx)
	cancel()
	wg.Wait()
}

func redactDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		if u.User != nil {
			user := u.User.Username()
			if user == "" {
				user = "user"
			}
			u.User = url.UserPassword(user, "****")
		}
		u.RawQuery = ""
		return u.String()
	}
	re := regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:/?#]+):([^@]+)@`)
	if re.MatchString(raw) {
		return re.ReplaceAllString(raw, `$1:****@`)
	}
	re = regexp.MustCompile(`(?i)(password=)([^\s]+)`)
	return re.ReplaceAllString(raw, `$1****`)
}
