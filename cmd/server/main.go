// Server runs the session and abuse-detection gRPC API with the stale-session sweeper and the
// dashboard refresher under one supervisor tree. With DATABASE_URL unset it runs on in-memory stores.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	adminhandler "sessionguard/internal/admin/handler"
	"sessionguard/internal/audit"
	auditrepo "sessionguard/internal/audit/repository"
	"sessionguard/internal/block"
	blockrepo "sessionguard/internal/block/repository"
	"sessionguard/internal/config"
	"sessionguard/internal/db"
	"sessionguard/internal/detection"
	"sessionguard/internal/events"
	"sessionguard/internal/events/producer"
	healthhandler "sessionguard/internal/health/handler"
	identityrepo "sessionguard/internal/identity/repository"
	"sessionguard/internal/logging"
	"sessionguard/internal/policy"
	"sessionguard/internal/policy/engine"
	policyrepo "sessionguard/internal/policy/repository"
	"sessionguard/internal/security"
	"sessionguard/internal/server"
	"sessionguard/internal/server/interceptors"
	"sessionguard/internal/session/tracker"
	sessionrepo "sessionguard/internal/session/repository"
	"sessionguard/internal/stats"
	statsrepo "sessionguard/internal/stats/repository"
	"sessionguard/internal/store/memory"
	"sessionguard/internal/supervisor"
	"sessionguard/internal/telemetry"
	otelsetup "sessionguard/internal/telemetry/otel"
)

const seedActor = "system"

// stores groups the repositories the engine runs on.
type stores struct {
	sessions  sessionrepo.Repository
	stats     statsrepo.Repository
	policies  policyrepo.Repository
	blocks    blockrepo.Repository
	audit     auditrepo.Repository
	directory identityrepo.Directory
	pinger    healthhandler.Pinger
}

func memoryStores() stores {
	sessions := memory.NewSessions()
	return stores{
		sessions:  sessions,
		stats:     sessions,
		policies:  memory.NewPolicies(),
		blocks:    memory.NewBlocks(),
		audit:     memory.NewAuditLogs(),
		directory: identityrepo.NewStaticDirectory(),
	}
}

func postgresStores(conn *sql.DB, profilesTable string) (stores, error) {
	directory, err := identityrepo.NewPostgresDirectory(conn, profilesTable)
	if err != nil {
		return stores{}, err
	}
	return stores{
		sessions:  sessionrepo.NewPostgresRepository(conn),
		stats:     statsrepo.NewPostgresRepository(conn),
		policies:  policyrepo.NewPostgresRepository(conn),
		blocks:    blockrepo.NewPostgresRepository(conn),
		audit:     auditrepo.NewPostgresRepository(conn),
		directory: directory,
		pinger:    conn,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("otel")
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		logging.Fatal().Err(err).Msg("metrics")
	}

	var st stores
	if cfg.DatabaseURL == "" {
		logging.Warn().Msg("DATABASE_URL not set; using in-memory stores, state is lost on restart")
		st = memoryStores()
	} else {
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("database")
		}
		defer conn.Close()
		if st, err = postgresStores(conn, cfg.IdentityProfilesTable); err != nil {
			logging.Fatal().Err(err).Msg("identity directory")
		}
	}

	var rules *engine.OPAEvaluator
	if cfg.AbuseRulesFile != "" {
		rules, err = engine.NewOPAEvaluatorFromFile(ctx, cfg.AbuseRulesFile)
	} else {
		rules, err = engine.NewOPAEvaluator(ctx, "")
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("abuse rules")
	}

	var tokens *security.TokenProvider
	if cfg.AuthDisabled {
		logging.Warn().Msg("AUTH_DISABLED=true; every RPC runs as the dev identity with all roles")
	} else {
		signer, pub, err := security.LoadKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			logging.Fatal().Err(err).Msg("jwt keys: set JWT_PUBLIC_KEY or AUTH_DISABLED=true")
		}
		tokens = security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	}

	broker := events.NewBroker(64)
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ChangesKafkaTopic)
	publishers := events.Multi{broker, events.Async(otelsetup.NewChangePublisher(providers.LoggerProvider))}
	if kafkaProducer != nil {
		publishers = append(publishers, events.Async(kafkaProducer))
	}

	policies := policy.NewStore(st.policies, cfg.PolicyCacheDuration(), policy.WithPublisher(publishers), policy.WithMetrics(metrics))
	if _, created, err := policies.EnsureDefault(ctx, cfg.DefaultMaxAddresses, cfg.DefaultBlockMinutes, seedActor); err != nil {
		logging.Fatal().Err(err).Msg("default security policy")
	} else if created {
		logging.Info().Int("max_addresses", cfg.DefaultMaxAddresses).Int("block_minutes", cfg.DefaultBlockMinutes).Msg("seeded default security policy")
	}
	blocks := block.NewRegistry(st.blocks, block.WithPublisher(publishers), block.WithMetrics(metrics))
	detector := detection.New(policies, st.sessions, blocks, rules, metrics)
	tr := tracker.New(st.sessions,
		tracker.WithPublisher(publishers),
		tracker.WithMetrics(metrics),
		tracker.WithStaleAfter(cfg.StaleAfter()),
		tracker.WithOpenHook(detector.OnOpen),
	)
	agg := stats.NewAggregator(st.stats, blocks,
		stats.WithLocation(cfg.Location()),
		stats.WithStaleAfter(cfg.StaleAfter()),
		stats.WithDirectory(st.directory),
		stats.WithMetrics(metrics),
	)
	refresher := stats.NewRefresher(agg, cfg.RefreshInterval(), cfg.Debounce(), broker)

	grpcServer := server.NewGRPCServer(server.Options{Tokens: tokens, Metrics: metrics})
	deps := server.Deps{
		Tracker: tr,
		Admin: adminhandler.Deps{
			Tracker:      tr,
			Stats:        agg,
			Dashboard:    refresher,
			Blocks:       blocks,
			Policies:     policies,
			Detector:     detector,
			Audit:        audit.NewLogger(st.audit, interceptors.ClientIP),
			Changes:      broker,
			RecentWindow: cfg.RecentWindow(),
		},
		HealthPinger:        st.pinger,
		HealthPolicyChecker: rules,
	}
	server.RegisterServices(grpcServer, deps)

	tree := supervisor.NewTree("sessionguard", logging.WithComponent("supervisor"), supervisor.TreeConfig{})
	if interval := cfg.SweepInterval(); interval > 0 {
		tree.AddBackground(tracker.NewSweeper(tr, interval))
	}
	tree.AddBackground(refresher)
	tree.AddAPI(supervisor.NewGRPCService(grpcServer, cfg.GRPCAddr, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
	}

	// Let in-flight asynchronous publishes finish before the sinks close.
	time.Sleep(events.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		logging.Warn().Err(err).Msg("kafka producer close")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("otel shutdown")
	}
	logging.Info().Msg("server stopped")
}
