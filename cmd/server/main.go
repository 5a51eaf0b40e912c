package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	rootcfg "meethub/config"
	"meethub/internal/cache"
	"meethub/internal/config"
	"meethub/internal/provider"
	"meethub/internal/repository"
	"meethub/internal/service"
	"meethub/internal/transport/rest"
	"meethub/internal/transport/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := rootcfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	aiCfg := config.DefaultAIConfig()
	log.Info().
		Bool("transcription", aiCfg.TranscribeEnabled()).
		Bool("summary", aiCfg.SummaryEnabled()).
		Bool("emotion", aiCfg.EmotionEnabled()).
		Msg("AI providers configured")

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	cancel()
	log.Info().Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Msg("connected to Redis")

	// Repositories and caches
	meetingRepo := repository.NewMeetingRepo(db)
	meetingCache := cache.NewMeetingCache(rdb)

	// Provider adapters
	transcriber := provider.NewWhisperTranscriber(aiCfg.TranscribeURL, cfg.ProviderTimeout)
	summarizer := provider.NewOpenAISummarizer(aiCfg, cfg.ProviderTimeout)
	emotions := provider.NewFaceEmotionClient(aiCfg, cfg.ProviderTimeout)

	// Core services
	hub := ws.NewHub()
	registry := service.NewRegistryService(meetingRepo, cfg.ProviderTimeout)
	relay := service.NewRelayService()
	enrich := service.NewEnrichmentService(
		meetingRepo, transcriber, summarizer, emotions,
		cfg.EmotionSamplePeriod, cfg.ProviderTimeout,
	)
	meetingSvc := service.NewMeetingService(meetingRepo, meetingCache)

	// Wire the seams (hub implements service.Broadcaster)
	registry.SetBroadcaster(hub)
	registry.SetTaskStopper(enrich)
	relay.SetBroadcaster(hub)
	enrich.SetBroadcaster(hub)
	enrich.SetRoomLookup(registry)

	wsHandler := ws.NewHandler(hub, registry, relay, enrich, cfg.ReadLimit, cfg.PingPeriod)

	router := rest.NewRouter(&rest.Container{
		MeetingService: meetingSvc,
		WSHandler:      wsHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}
