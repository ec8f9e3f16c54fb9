package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	server "lodge_catalog/internal/adapters/http_server"
	"lodge_catalog/internal/adapters/observability"
	redisad "lodge_catalog/internal/adapters/redis"
	"lodge_catalog/internal/announce"
	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/engine"
	"lodge_catalog/internal/render"
	"lodge_catalog/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// catalog: one-shot load; on failure the server still starts and
	// surfaces a visible unavailable state instead of a blank page
	store := catalog.New(log.Logger)
	var src domain.CatalogSource = catalog.FileSource{Path: cfg.CatalogPath}
	if cfg.CatalogURL != "" {
		src = catalog.HTTPSource{URL: cfg.CatalogURL}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	loadErr := store.Load(ctx, src)
	cancel()
	if loadErr != nil {
		log.Error().Err(loadErr).Msg("catalog load failed; serving unavailable state")
	} else {
		log.Info().Int("records", store.Count()).Float64("max_rate", store.MaxRate()).Msg("catalog ready")
	}

	// deps
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	rend := render.New(render.Options{ContactEmail: cfg.ContactEmail, AmenityPreview: cfg.AmenityPreview})
	live := announce.New(cfg.AnnounceTTL)

	h, err := server.NewHandlers(server.Handlers{
		Store:   store,
		Rend:    rend,
		Live:    live,
		Cache:   cache,
		TTL:     cfg.CacheTTL,
		Windows: engine.Windows{Search: cfg.SearchDebounce, Price: cfg.PriceDebounce},
		LoadErr: loadErr,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("handler init failed")
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("catalog listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
