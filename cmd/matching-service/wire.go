package main

import (
	"context"
	"fmt"
	"time"

	"investor-matching/internal/api"
	"investor-matching/internal/common/auth"
	"investor-matching/internal/common/aws"
	"investor-matching/internal/common/config"
	"investor-matching/internal/common/database"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/observability"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/directory"
	"investor-matching/internal/matching/engine"
	"investor-matching/internal/matching/interaction"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/matching/memstore"
	"investor-matching/internal/matching/notify"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/matching/thesis"

	"github.com/redis/go-redis/v9"
)

type options struct {
	inMemory bool
	seedFile string
}

// app holds the wired engine and everything that must be closed on exit.
type app struct {
	engine  *engine.Engine
	auth    auth.Authenticator
	checks  map[string]api.Check
	obs     *observability.Observability
	policy  retry.Policy
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type stores struct {
	theses       thesis.Repository
	matches      match.Repository
	interactions interaction.Repository
	startups     directory.Store
	tx           database.Transactor
}

func retryPolicy(c config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxTries:        c.MaxTries,
		InitialInterval: config.GetDuration(c.InitialInterval),
		MaxInterval:     config.GetDuration(c.MaxInterval),
	}
}

func buildApp(ctx context.Context, log logger.Logger, opts options) (*app, error) {
	a := &app{checks: map[string]api.Check{}, policy: retryPolicy(cfg.Retry)}

	st, err := a.openStores(ctx, log, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	var cache redis.Cmdable
	var dirOpts []directory.Option
	if cfg.Database.Redis.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.checks["redis"] = rdb.Ping
		cache = rdb.Client
		ttl := time.Duration(cfg.Matching.CacheTTL) * time.Second
		dirOpts = append(dirOpts, directory.WithCache(directory.NewProfileCache(rdb.Client, ttl, log)))
	}
	if cfg.Database.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.checks["elasticsearch"] = es.Ping
		dirOpts = append(dirOpts, directory.WithSearch(directory.NewSearcher(es.Client, cfg.Database.Elasticsearch.StartupIndex)))
	}

	a.auth = newAuthenticator(cache, log)

	obs, err := observability.New(ctx, cfg.App.Name, cfg.Tracing.Endpoint)
	if err != nil {
		log.Warn("telemetry exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	a.obs = obs
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	})

	pages := match.Pagination{
		DefaultLimit: cfg.Matching.Pagination.DefaultLimit,
		MaxLimit:     cfg.Matching.Pagination.MaxLimit,
	}
	dir := directory.New(st.startups, a.policy, log, dirOpts...)
	matches := match.NewService(st.matches, dir, pages, a.policy, log)

	a.engine = engine.New(engine.Dependencies{
		Theses:       thesis.NewStore(st.theses, st.tx, a.policy, log),
		Matches:      matches,
		Interactions: interaction.NewService(st.interactions, matches, st.tx, a.policy, log),
		Startups:     dir,
		Scorer: scoring.NewScorer(scoring.Config{
			FundingDecayBand:     cfg.Matching.Scoring.FundingDecayBand,
			KeywordBoostPerMatch: cfg.Matching.Scoring.KeywordBoostPerMatch,
			KeywordBoostCap:      cfg.Matching.Scoring.KeywordBoostCap,
		}),
		Notifier: newNotifier(ctx, log),
		Observer: obs,
		Logger:   log,
	}, engine.BatchConfig{
		Concurrency: cfg.Matching.Batch.Concurrency,
		PageSize:    cfg.Matching.Batch.PageSize,
	})
	return a, nil
}

func (a *app) openStores(ctx context.Context, log logger.Logger, opts options) (*stores, error) {
	if opts.inMemory {
		db := memstore.New()
		if opts.seedFile != "" {
			n, err := db.Startups().LoadFile(opts.seedFile)
			if err != nil {
				return nil, err
			}
			log.Info("seeded startups", map[string]interface{}{"count": n, "file": opts.seedFile})
		}
		return &stores{
			theses:       db.Theses(),
			matches:      db.Matches(),
			interactions: db.Interactions(),
			startups:     db.Startups(),
			tx:           db,
		}, nil
	}

	pg, err := openPostgres(ctx, a.policy)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = pg.Close() })
	a.checks["postgres"] = pg.Ping

	return &stores{
		theses:       thesis.NewPostgresRepository(pg.DB),
		matches:      match.NewPostgresRepository(pg.DB),
		interactions: interaction.NewPostgresRepository(pg.DB),
		startups:     directory.NewPostgresRepository(pg.DB),
		tx:           database.NewTransactor(pg.DB),
	}, nil
}

func openPostgres(ctx context.Context, policy retry.Policy) (*database.PostgresClient, error) {
	if cfg.Database.Postgres.Host == "" {
		return nil, fmt.Errorf("database.postgres.host is not configured; use --in-memory for a local run")
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	err = retry.Run(ctx, policy, func(ctx context.Context) error {
		return database.Classify("postgres", pg.Ping(ctx))
	})
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return pg, nil
}

func newAuthenticator(cache redis.Cmdable, log logger.Logger) auth.Authenticator {
	kc := cfg.Auth.Keycloak
	if kc.Enabled {
		return auth.NewKeycloakAuthenticator(
			auth.NewKeycloakClient(kc.URL, kc.Realm, kc.ClientID, kc.ClientSecret),
			cache,
			time.Duration(kc.CacheTTL)*time.Second,
			log,
		)
	}
	log.Warn("keycloak disabled, accepting static tokens only", map[string]interface{}{"tokens": len(cfg.Auth.StaticTokens)})
	return auth.NewStaticAuthenticator(cfg.Auth.StaticTokens)
}

// newNotifier only assigns the interfaces for clients that were built, so a disabled channel stays
// a true nil.
func newNotifier(ctx context.Context, log logger.Logger) *notify.Notifier {
	n := cfg.Notifications
	var email notify.EmailSender
	var events notify.EventPublisher

	if n.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, n.AWS.Region, n.SES.FromEmail)
		if err != nil {
			log.Warn("ses disabled", map[string]interface{}{"error": err.Error()})
		} else {
			email = ses
		}
	}
	if n.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, n.AWS.Region, n.SNS.TopicARN)
		if err != nil {
			log.Warn("sns disabled", map[string]interface{}{"error": err.Error()})
		} else {
			events = sns
		}
	}
	return notify.New(email, events, log)
}
