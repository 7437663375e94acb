package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dq-cli/internal/batch"
	"github.com/sells-group/dq-cli/internal/building"
	"github.com/sells-group/dq-cli/internal/config"
	"github.com/sells-group/dq-cli/internal/resilience"
	"github.com/sells-group/dq-cli/internal/rules"
	"github.com/sells-group/dq-cli/internal/store"
	"github.com/sells-group/dq-cli/pkg/anthropic"
	"github.com/sells-group/dq-cli/pkg/geocode"
)

// initStore opens and migrates the configured run history backend.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		Pool: &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		},
	})
}

// initGeocoder builds the configured provider chain. offline swaps in an
// empty stub so every lookup comes back unmatched.
func initGeocoder(gc config.GeocodeConfig, offline bool) (geocode.Client, error) {
	if offline || gc.Provider == "stub" {
		return geocode.NewStubProvider(), nil
	}

	common := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(gc.TimeoutSecs) * time.Second}),
		geocode.WithRateLimit(gc.RequestsPerSecond),
		geocode.WithRetry(resilience.FromConfig(gc.RetryAttempts, gc.RetryBackoffMs)),
		geocode.WithLanguage(gc.Language),
	}
	newGeoapify := func() *geocode.GeoapifyClient {
		opts := append([]geocode.Option{}, common...)
		if gc.Geoapify.BaseURL != "" {
			opts = append(opts, geocode.WithBaseURL(gc.Geoapify.BaseURL))
		}
		opts = append(opts, geocode.WithBreaker(resilience.NewBreaker("geoapify", gc.BreakerThreshold, 0)))
		return geocode.NewGeoapify(gc.Geoapify.Key, opts...)
	}
	newGoogle := func() *geocode.GoogleClient {
		opts := append([]geocode.Option{}, common...)
		if gc.Google.BaseURL != "" {
			opts = append(opts, geocode.WithBaseURL(gc.Google.BaseURL))
		}
		opts = append(opts, geocode.WithBreaker(resilience.NewBreaker("google", gc.BreakerThreshold, 0)))
		return geocode.NewGoogle(gc.Google.Key, opts...)
	}

	switch gc.Provider {
	case "", "geoapify":
		return newGeoapify(), nil
	case "google":
		// Google has no reverse endpoint here; reverse lookups degrade to no match.
		return geocode.NewCascadeClient(newGoogle()), nil
	case "cascade":
		return geocode.NewCascadeClient(newGeoapify(), newGoogle()), nil
	default:
		return nil, eris.Errorf("unknown geocode provider %q", gc.Provider)
	}
}

// initEstimator builds the Claude-backed building estimator.
func initEstimator(ac config.AnthropicConfig, country string) building.Estimator {
	client := anthropic.NewClient(ac.Key)
	return building.NewClaudeEstimator(client,
		building.WithModel(ac.Model),
		building.WithMaxTokens(int64(ac.MaxTokens)),
		building.WithCountry(country),
	)
}

// resolveRules applies a --region override before resolving the rules.
func resolveRules(region string) (rules.Rules, error) {
	rc := cfg.Rules
	if region != "" {
		rc.Region = region
	}
	return rc.Resolve()
}

// batchOptions maps config onto processor options.
func batchOptions(bc config.BatchConfig, h3Resolution int) batch.Options {
	return batch.Options{
		Geocode:      bc.Geocode,
		Reverse:      bc.Reverse,
		Limit:        bc.Limit,
		Concurrency:  bc.Concurrency,
		H3Resolution: h3Resolution,
	}
}
