// File: cmd/seed/main.go
// Provisions the forfait catalog. Safe to run repeatedly: existing types are
// updated in place, not duplicated.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"marketplace-forfait-service/internal/config"
	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/domain/ports/repository"
	pg "marketplace-forfait-service/internal/infra/db/postgres"
)

var catalog = []model.Forfait{
	{Type: model.ForfaitTypeUrgent, Price: 500, DurationDays: 7},
	{Type: model.ForfaitTypeTopAnnonce, Price: 1000, DurationDays: 7},
	{Type: model.ForfaitTypeALaUne, Price: 1500, DurationDays: 14},
	{Type: model.ForfaitTypePremium, Price: 2500, DurationDays: 30},
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := pg.NewForfaitRepo(pool)
	for _, f := range catalog {
		existing, err := repo.FindByType(ctx, repository.NoTX, f.Type)
		switch {
		case err == nil:
			f.ID = existing.ID
			f.CreatedAt = existing.CreatedAt
		case errors.Is(err, domain.ErrNotFound):
			f.ID = uuid.NewString()
			f.CreatedAt = time.Now()
		default:
			log.Fatalf("lookup forfait %s: %v", f.Type, err)
		}
		if err := repo.Save(ctx, repository.NoTX, &f); err != nil {
			log.Fatalf("save forfait %s: %v", f.Type, err)
		}
		log.Printf("forfait %s: %d XAF, %d days", f.Type, f.Price, f.DurationDays)
	}
	log.Println("catalog seeded")
}
