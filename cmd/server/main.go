// Server exposes the device pairing API over HTTP. Configuration comes from
// the environment (or a .env file); with no DATABASE_URL it runs entirely on
// in-memory repositories, which is enough for local development.
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pairing-control-plane/internal/audit"
	auditrepo "pairing-control-plane/internal/audit/repository"
	"pairing-control-plane/internal/backupcred"
	backuprepo "pairing-control-plane/internal/backupcred/repository"
	"pairing-control-plane/internal/config"
	"pairing-control-plane/internal/db"
	"pairing-control-plane/internal/delivery"
	"pairing-control-plane/internal/pairing/capability"
	"pairing-control-plane/internal/pairing/channel"
	"pairing-control-plane/internal/pairing/credstore"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/pairing/fallback"
	"pairing-control-plane/internal/pairing/service"
	"pairing-control-plane/internal/pairing/verify"
	"pairing-control-plane/internal/protocol"
	"pairing-control-plane/internal/security"
	"pairing-control-plane/internal/server"
	"pairing-control-plane/internal/session"
	sessionrepo "pairing-control-plane/internal/session/repository"
	"pairing-control-plane/internal/support"
	"pairing-control-plane/internal/telemetry"
	telemetryotel "pairing-control-plane/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "pairing-control-plane", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer sqlDB.Close()
	} else {
		log.Println("DATABASE_URL not set, using in-memory repositories")
	}

	var (
		sessionRepo sessionrepo.Repository
		backupRepo  backuprepo.Repository
		auditRepo   auditrepo.Repository
	)
	if sqlDB != nil {
		sessionRepo = sessionrepo.NewPostgresRepository(sqlDB)
		backupRepo = backuprepo.NewPostgresRepository(sqlDB)
		auditRepo = auditrepo.NewPostgresRepository(sqlDB)
	} else {
		sessionRepo = sessionrepo.NewMemoryRepository()
		backupRepo = backuprepo.NewMemoryRepository()
		auditRepo = auditrepo.NewMemoryRepository()
	}

	directory := session.NewDirectory(sessionRepo)
	hasher := security.NewHasher(cfg.BcryptCost)
	vault := backupcred.NewVault(backupRepo, hasher)

	tokens, err := buildTokenProvider(cfg)
	if err != nil {
		log.Fatalf("pairing token keys: %v", err)
	}
	if tokens == nil {
		log.Println("pairing token keys not set, verifications will not mint tokens")
	}

	store := credstore.NewMemoryStore()
	attempts := credstore.NewAttemptCounter()
	registry := channel.NewRegistry(buildStrategies(cfg, store, attempts, vault, directory)...)

	checker, err := buildCapabilityChecker(ctx, cfg.CapabilityPolicyDir)
	if err != nil {
		log.Fatalf("capability policy: %v", err)
	}

	var tickets fallback.Tickets
	if cfg.SupportDeskURL != "" {
		tickets = support.NewClient(cfg.SupportDeskKey, cfg.SupportDeskURL)
	}

	// One counter for both the facade and the executor, so fallback
	// generations count against the same per-(phone, channel) window.
	rate := credstore.NewRateCounter()

	executor := fallback.NewExecutor(
		registry,
		fallback.NewSelector(fallback.DefaultCatalog(), checker),
		tickets,
		directory,
		nil,
		store,
		attempts,
		rate,
		fallback.NewStats(),
		domain.SupportContact{Email: cfg.SupportContactEmail, URL: cfg.SupportContactURL},
	)

	emitter := telemetryotel.NewEventEmitter(providers.LoggerProvider)
	sink, err := telemetry.NewSink(emitter, providers.MeterProvider.Meter("pairing.server"), "pairing-control-plane")
	if err != nil {
		log.Fatalf("telemetry sink: %v", err)
	}
	auditTrail := audit.NewLogger(auditRepo)
	events := service.FanOut{auditTrail, sink}

	svc := service.New(
		registry,
		rate,
		store,
		verify.NewEngine(store, attempts, vault),
		executor,
		tokens,
		directory,
		events,
	)

	var proto protocol.Client
	if cfg.ProtocolWSURL != "" {
		proto = protocol.NewWSClient(cfg.ProtocolWSURL)
	}

	var health server.HealthCheck
	if sqlDB != nil {
		health = sqlDB.Ping
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(svc, health, proto, auditTrail).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before tearing down exporters.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// buildTokenProvider returns nil when the signing keys are not configured.
func buildTokenProvider(cfg *config.Config) (*security.PairTokenProvider, error) {
	if cfg.PairTokenPrivateKey == "" || cfg.PairTokenPublicKey == "" {
		return nil, nil
	}
	priv, err := security.ParsePrivateKey(cfg.PairTokenPrivateKey)
	if err != nil {
		return nil, err
	}
	pub, err := security.ParsePublicKey(cfg.PairTokenPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewPairTokenProvider(priv, pub, cfg.PairTokenIssuer, cfg.PairTokenAudience, cfg.TokenTTL()), nil
}

// buildStrategies enables each channel whose provider is configured. The
// device-display channel and the backup vault need no external provider.
func buildStrategies(
	cfg *config.Config,
	store credstore.Store,
	attempts *credstore.AttemptCounter,
	vault *backupcred.Vault,
	directory *session.Directory,
) []channel.Strategy {
	strategies := []channel.Strategy{channel.NewPrimary(store, attempts)}
	if cfg.SMSAPIKey != "" {
		strategies = append(strategies, channel.NewSMS(store, attempts, delivery.NewSMSClient(cfg.SMSAPIKey, cfg.SMSBaseURL, cfg.SMSSender)))
	} else {
		log.Println("SMS_API_KEY not set, sms channel disabled")
	}
	if cfg.VoiceAPIKey != "" {
		strategies = append(strategies, channel.NewCall(store, attempts, delivery.NewVoiceClient(cfg.VoiceAPIKey, cfg.VoiceBaseURL, cfg.VoiceCallerID)))
	} else {
		log.Println("VOICE_API_KEY not set, call channel disabled")
	}
	if cfg.MailAPIKey != "" {
		strategies = append(strategies, channel.NewEmail(store, attempts, delivery.NewMailClient(cfg.MailAPIKey, cfg.MailBaseURL, cfg.MailFrom), directory))
	} else {
		log.Println("MAIL_API_KEY not set, email channel disabled")
	}
	strategies = append(strategies, channel.NewBackup(store, attempts, vault))
	return strategies
}

// buildCapabilityChecker loads any *.rego modules from dir; with no dir the
// checker runs on its built-in allow-all policy.
func buildCapabilityChecker(ctx context.Context, dir string) (*capability.OPAChecker, error) {
	modules := map[string]string{}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".rego" {
				continue
			}
			src, err := os.ReadFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			modules[entry.Name()] = string(src)
		}
	}
	checker := capability.NewOPAChecker(modules)
	if err := checker.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return checker, nil
}
