package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mood-orchestrator/internal/catalog"
	"mood-orchestrator/internal/completion"
	"mood-orchestrator/internal/moodstream"
	"mood-orchestrator/internal/platform/config"
	"mood-orchestrator/internal/platform/logger"
	"mood-orchestrator/internal/platform/metrics"
	"mood-orchestrator/internal/prediction"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	batchSize := config.GetEnvInt("BATCH_SIZE", moodstream.DefaultBatchSize)
	autogenThreshold := config.GetEnvInt("AUTOGEN_THRESHOLD", moodstream.DefaultAutogenThreshold)

	log := logger.New(logLevel, logFormat)

	cat := catalog.New(log)

	predictor := prediction.New(prediction.Config{
		Endpoint: config.GetEnv("PREDICTOR_URL", ""),
		Timeout:  config.GetEnvDuration("PREDICTOR_TIMEOUT", prediction.DefaultTimeout),
	}, log)

	completer := completion.New(completion.Config{
		APIKey:   config.GetEnv("OPENAI_API_KEY", ""),
		Endpoint: config.GetEnv("OPENAI_ENDPOINT", completion.DefaultEndpoint),
		Model:    config.GetEnv("OPENAI_MODEL", completion.DefaultModel),
		Timeout:  config.GetEnvDuration("OPENAI_TIMEOUT", completion.DefaultTimeout),
	}, log)

	var provider moodstream.ContextProvider
	signalsURL := config.GetEnv("SIGNALS_URL", "")
	if signalsURL != "" && !config.GetEnvBool("FIXTURE_CONTEXT", false) {
		provider = moodstream.NewLiveContextProvider(signalsURL, log)
	} else {
		provider = &moodstream.FixtureContextProvider{}
		log.Info("no signals endpoint configured, using fixture context")
	}

	met := metrics.New()
	cache := moodstream.NewResponseCache()
	pipeline := moodstream.NewPipeline(provider, predictor, completer, cat, cache, met, log)
	sched := moodstream.NewScheduler(pipeline, batchSize, autogenThreshold, met, log)
	h := moodstream.NewHandler(sched, log, met)

	go func() {
		for ev := range sched.Events() {
			log.Info("stream event",
				"type", string(ev.Type),
				"stream_id", ev.StreamID,
				"segments", ev.Segments,
			)
		}
	}()

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetStreamSegments(len(sched.Snapshot().Segments)) }).ServeHTTP(w, r)
	})
	r.Route("/stream", func(r chi.Router) {
		r.Get("/", h.GetStream)
		r.Post("/start", h.StartStream)
		r.Post("/position", h.UpdatePosition)
		r.Post("/next", h.NextStream)
		r.Put("/refresh", h.RefreshStream)
		r.Post("/scent", h.RegenerateScent)
		r.Post("/music", h.RegenerateMusic)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"batch_size", batchSize,
		"autogen_threshold", autogenThreshold,
		"predictor_configured", predictor.Configured(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
