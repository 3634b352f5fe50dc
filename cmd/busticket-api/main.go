// README: Entry point; loads config, wires services and serves the HTTP API until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busticket/internal/config"
	httptransport "busticket/internal/http"
	"busticket/internal/infra"
	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/modules/report"
	"busticket/internal/modules/session"
	"busticket/internal/modules/ticket"
	"busticket/migrations"
)

func main() {
	infra.InitLogging()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("BUSTICKET_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Ticket.Timezone)
	if err != nil {
		log.Fatalf("timezone %q: %v", cfg.Ticket.Timezone, err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()
	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(ctx, dbPool, migrations.FS); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	catalogSvc := catalog.NewService(catalog.NewStore(dbPool))
	fareSvc := fare.NewService(fare.NewStore(dbPool), catalogSvc, fare.FormulaFromConfig(cfg.Fare))

	ticketSvc := ticket.NewService(
		ticket.NewStore(dbPool),
		catalogSvc,
		catalogSvc,
		fareSvc.Resolver(),
		ticket.NewRedisSequence(redisClient),
		ticket.Options{NumberRetries: cfg.Ticket.NumberRetries, Location: loc},
	)
	sessionSvc := session.NewService(session.NewStore(redisClient), catalogSvc, catalogSvc, ticketSvc, cfg.Session.TTL)
	reportSvc := report.NewService(report.NewStore(dbPool), loc)

	server := httptransport.NewServer(httptransport.ServerDeps{
		Catalog:  catalogSvc,
		Fare:     fareSvc,
		Ticket:   ticketSvc,
		Session:  sessionSvc,
		Report:   reportSvc,
		Verifier: verifier,
		Location: loc,
	})

	if err := server.Run(ctx, cfg.HTTP.Addr); err != nil {
		log.Fatal(err)
	}
}
