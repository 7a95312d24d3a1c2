package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/fabricflow/fabricflow/internal/app"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/shared"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	services := app.BuildServices(app.ServiceDeps{
		Backend:   app.PostgresBackend(pool),
		Logger:    app.NewLogger(cfg),
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTTTL,
		Location:  cfg.Location(),
	})

	email := getenv("ADMIN_EMAIL", cfg.AdminEmail, "admin@fabricflow.local")
	password := getenv("ADMIN_PASSWORD", cfg.AdminPassword, "change-me-now")

	fmt.Println("→ Seeding admin...")
	created, err := app.EnsureAdmin(ctx, services.Auth, email, password)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if !created {
		fmt.Println("  admin", email, "already exists")
	}

	seeder := shared.Actor{ID: uuid.Nil, Name: "seed", Role: shared.RoleAdmin}

	fmt.Println("→ Seeding stores...")
	for _, in := range []catalog.StoreInput{
		{Name: "MG Road", Code: "MGR", Address: "MG Road, Bengaluru"},
		{Name: "Koramangala", Code: "KOR", Address: "80 Feet Road, Koramangala"},
	} {
		if err := ignoreConflict(services.Catalog.CreateStore(ctx, in, seeder)); err != nil {
			log.Fatalf("seed store %s: %v", in.Name, err)
		}
	}

	fmt.Println("→ Seeding suppliers...")
	for _, in := range []catalog.SupplierInput{
		{Name: "Surat Weaves", ContactName: "R. Patel", Phone: "+912612345678"},
		{Name: "Tiruppur Knits", ContactName: "S. Kumar"},
	} {
		if err := ignoreConflict(services.Catalog.CreateSupplier(ctx, in, seeder)); err != nil {
			log.Fatalf("seed supplier %s: %v", in.Name, err)
		}
	}

	fmt.Println("→ Seeding categories...")
	for _, name := range []string{"Shirts", "Kurtas", "Trousers"} {
		if err := ignoreConflict(services.Catalog.CreateCategory(ctx, catalog.CategoryInput{Name: name}, seeder)); err != nil {
			log.Fatalf("seed category %s: %v", name, err)
		}
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func ignoreConflict[T any](_ T, err error) error {
	if errors.Is(err, shared.ErrConflict) {
		return nil
	}
	return err
}

func getenv(key, configured, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if configured != "" {
		return configured
	}
	return fallback
}
