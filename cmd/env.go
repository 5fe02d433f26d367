package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gconnect/leadgen-cli/internal/mail"
	"github.com/gconnect/leadgen-cli/internal/outreach"
	"github.com/gconnect/leadgen-cli/internal/pipeline"
	"github.com/gconnect/leadgen-cli/internal/resilience"
	"github.com/gconnect/leadgen-cli/internal/store"
	"github.com/gconnect/leadgen-cli/pkg/nominatim"
	"github.com/gconnect/leadgen-cli/pkg/overpass"
)

// pipelineEnv holds the initialized store and pipeline needed by the
// run/search/send/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, map-data clients, outreach engine, and
// the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	ovClient := overpass.NewClient(
		overpass.WithMirrors(cfg.Overpass.Mirrors),
		overpass.WithHTTPClient(&http.Client{Timeout: cfg.Overpass.Timeout()}),
		overpass.WithRetryPolicy(resilience.FixedDelay{
			Attempts: cfg.Overpass.Retries,
			Pause:    time.Duration(cfg.Overpass.RetryDelaySecs) * time.Second,
		}),
	)
	nomClient := nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
	)

	sender := mail.NewSMTPSender(
		cfg.SMTP.Host, cfg.SMTP.Port,
		cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.Outreach.SenderEmail, cfg.Outreach.SenderName,
	)
	engine := outreach.NewEngine(sender, outreach.Templater{
		SenderName:      cfg.Outreach.SenderName,
		SenderEmail:     cfg.Outreach.SenderEmail,
		TrackingBaseURL: cfg.Outreach.TrackingBaseURL,
	}, cfg.Outreach.SendDelay())

	p := pipeline.New(pipeline.Params{
		Overpass:    ovClient,
		Nominatim:   nomClient,
		Discoverer:  pipeline.NewDiscoverer(),
		Store:       st,
		Engine:      engine,
		DefaultArea: cfg.Pipeline.DefaultArea,
		EnrichDelay: cfg.Pipeline.EnrichDelay(),
		CSVPath:     cfg.Export.CSVPath,
		XLSXPath:    cfg.Export.XLSXPath,
	})

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}
