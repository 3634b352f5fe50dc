// README: Seeder CLI; applies a YAML seed of routes, stops, buses and fare tables to Postgres.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"busticket/internal/config"
	"busticket/internal/infra"
	"busticket/internal/modules/catalog"
	"busticket/internal/modules/fare"
	"busticket/internal/seed"
	"busticket/migrations"
)

func main() {
	infra.InitLogging()
	path := flag.String("file", "seeds/sample.yaml", "seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	f, err := seed.Load(*path)
	if err != nil {
		log.Fatalf("seed %s: %v", *path, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := infra.Migrate(ctx, db, migrations.FS); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	catalogSvc := catalog.NewService(catalog.NewStore(db))
	fareSvc := fare.NewService(fare.NewStore(db), catalogSvc, fare.FormulaFromConfig(cfg.Fare))

	rep, err := seed.NewSeeder(catalogSvc, fareSvc).Apply(ctx, f)
	if err != nil {
		log.Fatalf("apply %s: %v", *path, err)
	}
	log.Printf("seed: section fares=%d routes=%d stops=%d buses=%d route sections=%d skipped=%d",
		rep.SectionFares, rep.Routes, rep.Stops, rep.Buses, rep.RouteSections, rep.Skipped)
}
