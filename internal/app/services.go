package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fabricflow/fabricflow/internal/auth"
	"github.com/fabricflow/fabricflow/internal/catalog"
	"github.com/fabricflow/fabricflow/internal/dispatch"
	"github.com/fabricflow/fabricflow/internal/fabric"
	"github.com/fabricflow/fabricflow/internal/inventory"
	"github.com/fabricflow/fabricflow/internal/ledger"
	"github.com/fabricflow/fabricflow/internal/platform/cache"
	"github.com/fabricflow/fabricflow/internal/platform/db"
	"github.com/fabricflow/fabricflow/internal/production"
	"github.com/fabricflow/fabricflow/internal/reports"
	"github.com/fabricflow/fabricflow/internal/returns"
	"github.com/fabricflow/fabricflow/internal/sales"
	"github.com/fabricflow/fabricflow/internal/sequence"
	"github.com/fabricflow/fabricflow/internal/shared"
	"github.com/fabricflow/fabricflow/internal/storage/memory"
)

// KeyStore is the sale idempotency store plus its retention sweep.
type KeyStore interface {
	sales.Idempotency
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// Backend bundles one storage implementation of every repository.
type Backend struct {
	Tx          db.Transactor
	Audit       shared.Auditor
	Idempotency KeyStore
	Numbers     sequence.Finder

	Catalog    catalog.Repository
	Inventory  inventory.Repository
	Ledger     ledger.Repository
	Fabrics    fabric.Repository
	Batches    production.Repository
	Dispatches dispatch.Repository
	Sales      sales.Repository
	Returns    returns.Repository
	Reports    reports.Repository
	Users      auth.Repository
}

// PostgresBackend builds repositories on a pgx pool. Every repository reads
// its connection from the transaction manager so they share atomic units.
func PostgresBackend(pool *pgxpool.Pool) Backend {
	tx := db.NewTxManager(pool)
	return Backend{
		Tx:          tx,
		Audit:       shared.NewAuditLogger(pool),
		Idempotency: shared.NewIdempotencyStore(tx),
		Numbers:     sequence.NewRepository(tx),
		Catalog:     catalog.NewRepository(tx),
		Inventory:   inventory.NewRepository(tx),
		Ledger:      ledger.NewRepository(tx),
		Fabrics:     fabric.NewRepository(tx),
		Batches:     production.NewRepository(tx),
		Dispatches:  dispatch.NewRepository(tx),
		Sales:       sales.NewRepository(tx),
		Returns:     returns.NewRepository(tx),
		Reports:     reports.NewRepository(tx),
		Users:       auth.NewRepository(tx),
	}
}

// MemoryBackend builds repositories on one in-memory store.
func MemoryBackend(store *memory.Store) Backend {
	return Backend{
		Tx:          store,
		Audit:       store,
		Idempotency: store,
		Numbers:     store,
		Catalog:     store.Catalog(),
		Inventory:   store.Inventory(),
		Ledger:      store.Ledger(),
		Fabrics:     store.Fabrics(),
		Batches:     store.Batches(),
		Dispatches:  store.Dispatches(),
		Sales:       store.Sales(),
		Returns:     store.Returns(),
		Reports:     store.Reports(),
		Users:       store.Users(),
	}
}

// ServiceDeps are the collaborators outside the storage backend. Every
// field except Backend and JWTSecret is optional.
type ServiceDeps struct {
	Backend      Backend
	Logger       *slog.Logger
	Redis        redis.UniversalClient
	JWTSecret    string
	JWTTTL       time.Duration
	LockTTL      time.Duration
	Observer     inventory.Observer
	Notifier     sales.Notifier
	PhoneRegion  string
	Location     *time.Location
	SummaryTTL   time.Duration
	SequenceOpts []sequence.Option
}

// Services is the assembled application.
type Services struct {
	Ledger     *ledger.Recorder
	Adjuster   *inventory.Adjuster
	Catalog    *catalog.Service
	Inventory  *inventory.Service
	Fabric     *fabric.Service
	Production *production.Service
	Dispatch   *dispatch.Service
	Sales      *sales.Service
	Returns    *returns.Service
	Reports    *reports.Service
	Auth       *auth.Service
}

// BuildServices wires every service on deps.Backend. Without redis the
// sequence lock is skipped, logout cannot revoke tokens and the dashboard is
// never cached.
func BuildServices(deps ServiceDeps) *Services {
	b := deps.Backend
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	seqOpts := deps.SequenceOpts
	var revoker auth.Revoker
	var summaryCache reports.SummaryCache
	if deps.Redis != nil {
		seqOpts = append(seqOpts, sequence.WithLocker(sequence.NewRedisLocker(deps.Redis, deps.LockTTL)))
		revoker = auth.NewDenylist(deps.Redis)
		if deps.SummaryTTL > 0 {
			summaryCache = cache.NewJSONCache(deps.Redis, "fabricflow:reports", deps.SummaryTTL)
		}
	}
	seq := sequence.NewGenerator(b.Numbers, seqOpts...)

	recorder := ledger.NewRecorder(b.Ledger)
	adjuster := inventory.NewAdjuster(b.Inventory, b.Tx, recorder, deps.Observer)

	catalogSvc := catalog.NewService(b.Catalog, b.Tx, seq, b.Audit, logger.With(slog.String("module", "catalog")))
	catalogSvc.SetOpeningStocker(adjuster)

	fabricSvc := fabric.NewService(b.Fabrics, b.Tx, catalogSvc, b.Audit, logger.With(slog.String("module", "fabric")))
	inventorySvc := inventory.NewService(b.Inventory, b.Tx, adjuster, catalogSvc, b.Audit, logger.With(slog.String("module", "inventory")))
	productionSvc := production.NewService(b.Batches, b.Tx, fabricSvc, catalogSvc, adjuster, seq, b.Audit, logger.With(slog.String("module", "production")))
	dispatchSvc := dispatch.NewService(b.Dispatches, b.Tx, catalogSvc, adjuster, seq, b.Audit, logger.With(slog.String("module", "dispatch")))

	saleOpts := []sales.Option{sales.WithIdempotency(b.Idempotency)}
	if deps.Notifier != nil {
		saleOpts = append(saleOpts, sales.WithNotifier(deps.Notifier))
	}
	if deps.PhoneRegion != "" {
		saleOpts = append(saleOpts, sales.WithPhoneRegion(deps.PhoneRegion))
	}
	salesSvc := sales.NewService(b.Sales, b.Tx, catalogSvc, adjuster, seq, b.Audit, logger.With(slog.String("module", "sales")), saleOpts...)
	returnsSvc := returns.NewService(b.Returns, b.Tx, b.Sales, catalogSvc, adjuster, seq, b.Audit, logger.With(slog.String("module", "returns")))

	var reportOpts []reports.Option
	if summaryCache != nil {
		reportOpts = append(reportOpts, reports.WithSummaryCache(summaryCache))
	}
	reportsSvc := reports.NewService(b.Reports, inventorySvc, catalogSvc, deps.Location, logger.With(slog.String("module", "reports")), reportOpts...)

	authSvc := auth.NewService(b.Users, auth.NewTokenIssuer(deps.JWTSecret, deps.JWTTTL), revoker, catalogSvc, logger.With(slog.String("module", "auth")))

	return &Services{
		Ledger:     recorder,
		Adjuster:   adjuster,
		Catalog:    catalogSvc,
		Inventory:  inventorySvc,
		Fabric:     fabricSvc,
		Production: productionSvc,
		Dispatch:   dispatchSvc,
		Sales:      salesSvc,
		Returns:    returnsSvc,
		Reports:    reportsSvc,
		Auth:       authSvc,
	}
}

// EnsureAdmin creates the first admin account unless the email is taken.
// It reports whether a user was created.
func EnsureAdmin(ctx context.Context, svc *auth.Service, email, password string) (bool, error) {
	system := shared.Actor{ID: uuid.Nil, Name: "bootstrap", Role: shared.RoleAdmin}
	_, err := svc.CreateUser(ctx, auth.CreateUserInput{
		Email:    email,
		Name:     "Administrator",
		Password: password,
		Role:     shared.RoleAdmin,
	}, system)
	if errors.Is(err, shared.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
