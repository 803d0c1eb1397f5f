package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"YieldStream/internal/api"
	"YieldStream/internal/chain"
	"YieldStream/internal/claims"
	"YieldStream/internal/config"
	"YieldStream/internal/feed"
	"YieldStream/internal/metadata"
	"YieldStream/internal/notifier"
	"YieldStream/internal/recorder"
	"YieldStream/internal/scheduler"
	"YieldStream/internal/watch"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] YieldStream starting...")

	config.LoadEnvFiles([]string{".env"})

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	thresholds, err := cfg.Thresholds()
	if err != nil {
		log.Fatalf("[FATAL] alert thresholds: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init chain client and metadata resolution
	var (
		client  chain.Client
		fetcher metadata.Fetcher
	)
	if cfg.UsesChain() {
		ec, err := chain.NewEthClient(ctx, chain.EthOptions{
			RPCURL:            cfg.Chain.RPCURL,
			RegistryAddress:   cfg.Chain.RegistryAddress,
			StreamingAddress:  cfg.Chain.StreamingAddress,
			TokenDecimals:     cfg.Decimals(),
			PrivateKey:        cfg.Chain.PrivateKey,
			ChainID:           cfg.Chain.ChainID,
			RequestsPerSecond: cfg.Chain.RequestsPerSecond,
			Burst:             cfg.Chain.Burst,
			TxTimeout:         cfg.Chain.TxTimeout,
		})
		if err != nil {
			log.Fatalf("[FATAL] init chain client: %v", err)
		}
		defer ec.Close()
		client = ec

		var cache metadata.Cache = metadata.NewMemoryCache()
		if cfg.Metadata.RedisURL != "" {
			rc, err := metadata.NewRedisCache(ctx, cfg.Metadata.RedisURL)
			if err != nil {
				log.Printf("[WARN] init redis cache failed, using memory: %v", err)
			} else {
				cache = rc
				defer rc.Close()
			}
		}
		fetcher = metadata.NewCachedFetcher(metadata.NewIPFSFetcher(cfg.Metadata.Gateway, cfg.Proxy), cache, cfg.Metadata.CacheTTL)
	} else {
		log.Printf("[WARN] no rpc_url configured, using mock registry with %d tokens", cfg.Chain.MockTokens)
		client = chain.NewMockClient(cfg.Chain.MockTokens, time.Now())
	}
	log.Printf("[INFO] chain client: %s", client.Name())

	loader := chain.NewLoader(client, fetcher, cfg.Metadata.Gateway)

	// Init watch manager
	wm, err := watch.NewManager(cfg.Watch.StateFile, thresholds)
	if err != nil {
		log.Fatalf("[FATAL] init watch manager: %v", err)
	}

	// Init notifier
	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[INFO] Telegram not configured, alerts go to the log")
		sender = notifier.NewLogNotifier()
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init scheduler
	hub := feed.NewHub()
	cs := claims.NewService(client, rec)
	sched := scheduler.NewScheduler(ctx, client, loader, hub, wm, cs, sender, rec, scheduler.Options{
		Streams:       cfg.Watch.Streams,
		Discover:      cfg.Watch.Discover,
		DiscoverOwner: cfg.Watch.Owner,
	})
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.TickCron, cfg.Schedule.SampleCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Start HTTP API
	if cfg.API.Listen != "" {
		srv := api.NewServer(sched, loader, rec, hub, cfg.API.AllowedOrigins)
		go func() {
			if err := srv.Listen(cfg.API.Listen); err != nil {
				log.Printf("[ERROR] api server: %v", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(5 * time.Second); err != nil {
				log.Printf("[WARN] api shutdown: %v", err)
			}
		}()
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, refreshing streams now")
		go sched.RunNow()
	}

	log.Println("[INFO] YieldStream is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] YieldStream stopped")
}
