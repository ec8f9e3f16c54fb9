// The prefetcher warms and validates every record's image source so the
// first page view never waits on a cold image. Degraded sources are
// reported, not fatal.
package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"lodge_catalog/internal/adapters/observability"
	"lodge_catalog/internal/catalog"
	"lodge_catalog/internal/domain"
	"lodge_catalog/internal/lazyimg"
	"lodge_catalog/internal/shared"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("catalog", cfg.CatalogPath).
		Int("workers", cfg.PrefetchWorkers).
		Int("rps", cfg.ImageRPS).
		Msg("prefetcher starting")

	store := catalog.New(log.Logger)
	var src domain.CatalogSource = catalog.FileSource{Path: cfg.CatalogPath}
	if cfg.CatalogURL != "" {
		src = catalog.HTTPSource{URL: cfg.CatalogURL}
	}
	if err := store.Load(ctx, src); err != nil {
		log.Fatal().Err(err).Msg("catalog load failed")
	}

	fetcher := lazyimg.NewFetcher(cfg.ImageRPS)
	// no proximity watching in a batch run: nil watcher means every
	// registered unit loads immediately
	loader := lazyimg.NewLoader(nil, fetcher.Fetch)

	sem := semaphore.NewWeighted(int64(cfg.PrefetchWorkers))
	var wg sync.WaitGroup

	var ok, degraded, missing int
	var mu sync.Mutex

	for _, l := range store.All() {
		l := l

		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			loader.Register(ctx, l.ID, l.Image)
			state := loader.State(l.ID)

			mu.Lock()
			switch state {
			case domain.ImageLoaded:
				ok++
			case domain.ImageDegraded:
				degraded++
			case domain.ImageMissing:
				missing++
			}
			mu.Unlock()

			switch state {
			case domain.ImageDegraded:
				log.Warn().Str("id", l.ID).Str("src", l.Image).Msg("image unavailable")
			case domain.ImageMissing:
				log.Info().Str("id", l.ID).Msg("record has no image")
			default:
				log.Info().Str("id", l.ID).Msg("image warmed")
			}
		}()
	}

	wg.Wait()
	log.Info().
		Int("loaded", ok).
		Int("degraded", degraded).
		Int("missing", missing).
		Msg("prefetch completed")
}
