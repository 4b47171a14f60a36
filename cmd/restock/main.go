package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/shelfplan/backend-go/internal/cache"
	"github.com/andresuchdata/shelfplan/backend-go/internal/catalog"
	"github.com/andresuchdata/shelfplan/backend-go/internal/config"
	"github.com/andresuchdata/shelfplan/backend-go/internal/domain"
	"github.com/andresuchdata/shelfplan/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/shelfplan/backend-go/internal/restock"
	"github.com/andresuchdata/shelfplan/backend-go/internal/service"
	"github.com/andresuchdata/shelfplan/backend-go/internal/storage"
	"github.com/andresuchdata/shelfplan/backend-go/pkg/logger"
)

type dbKey struct{}

// openCatalogCache is replaced in tests.
var openCatalogCache = func() (cache.CatalogCache, bool, error) {
	cfg := config.Load().Cache
	c, err := cache.NewCatalogCache(cfg)
	return c, cfg.Enabled, err
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey{}, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey{}).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env file: %v", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("restock failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "restock",
		Usage: "Plan restocking budgets and manage shop catalogs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetOutput(c.App.ErrWriter, "console")
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Compute a restock plan and print it as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON request file (the POST /restock/strategy body)"},
					&cli.StringFlag{Name: "catalog", Usage: "CSV or XLSX catalog file"},
					&cli.StringFlag{Name: "shop", Usage: "Shop id", Value: "local"},
					&cli.Float64Flag{Name: "budget", Usage: "Budget to spend"},
					&cli.StringFlag{Name: "goal", Usage: "profit, volume or balanced", Value: domain.DefaultGoal},
					&cli.IntFlag{Name: "restock-days", Usage: "Days of stock to target", Value: restock.DefaultRestockDays},
					&cli.BoolFlag{Name: "payday", Usage: "Apply the payday demand boost"},
					&cli.StringFlag{Name: "event", Usage: "Upcoming sale event, e.g. 11.11 or christmas"},
					&cli.StringFlag{Name: "currency", Usage: "Currency symbol for reasoning text", EnvVars: []string{"RESTOCK_CURRENCY_SYMBOL"}},
				},
				Action: runPlan,
			},
			{
				Name:  "catalog",
				Usage: "Manage stored shop catalogs",
				Subcommands: []*cli.Command{
					{
						Name:  "import",
						Usage: "Import a CSV or XLSX catalog into Postgres",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "shop", Usage: "Shop id", Required: true},
							&cli.StringFlag{Name: "file", Usage: "CSV or XLSX catalog file", Required: true},
						},
						Before: initDB,
						After:  closeDB,
						Action: runCatalogImport,
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the Redis catalog cache (CACHE_* and REDIS_* settings)",
				Subcommands: []*cli.Command{
					{
						Name:   "flush",
						Usage:  "Drop every cached shop catalog",
						Action: runCacheFlush,
					},
				},
			},
			{
				Name:  "exports",
				Usage: "Browse plan CSVs in object storage (STORAGE_* settings)",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List exported plans of a shop",
						Flags:  []cli.Flag{&cli.StringFlag{Name: "shop", Required: true}},
						Action: runExportsList,
					},
					{
						Name:  "fetch",
						Usage: "Download an exported plan",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "key", Required: true},
							&cli.StringFlag{Name: "out", Usage: "Destination file (defaults to the key's base name)"},
						},
						Action: runExportsFetch,
					},
				},
			},
		},
	}
}

func runPlan(c *cli.Context) error {
	req, err := buildPlanRequest(c)
	if err != nil {
		return err
	}

	svc := service.NewRestockService(service.RestockConfig{
		Planner: restock.Options{CurrencySymbol: c.String("currency")},
	}, nil, nil, nil, nil)

	resp, err := svc.Strategy(c.Context, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return fmt.Errorf("invalid request: %v", domain.ValidationDetails(err))
		}
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func buildPlanRequest(c *cli.Context) (domain.RestockRequest, error) {
	var req domain.RestockRequest

	if path := c.String("input"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decode request %s: %w", path, err)
		}
		return req, nil
	}

	path := c.String("catalog")
	if path == "" {
		return req, fmt.Errorf("either --input or --catalog is required")
	}
	products, err := parseCatalogFile(path)
	if err != nil {
		return req, err
	}

	return domain.RestockRequest{
		ShopID:          c.String("shop"),
		Budget:          c.Float64("budget"),
		Goal:            c.String("goal"),
		Products:        products,
		RestockDays:     c.Int("restock-days"),
		IsPayday:        c.Bool("payday"),
		UpcomingHoliday: c.String("event"),
	}, nil
}

func parseCatalogFile(path string) ([]domain.ProductInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return catalog.Parse(filepath.Base(path), f)
}

func runCatalogImport(c *cli.Context) error {
	db, ok := c.Context.Value(dbKey{}).(*sql.DB)
	if !ok {
		return fmt.Errorf("database is not initialized")
	}
	pg := postgres.NewDBFromSQL(db, "pgx")
	if err := postgres.EnsureSchema(c.Context, pg); err != nil {
		return err
	}

	svc := service.NewRestockService(service.RestockConfig{}, postgres.NewPlanRepository(pg), postgres.NewCatalogRepository(pg), nil, nil)

	path := c.String("file")
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	snapshot, err := svc.ImportCatalog(c.Context, c.String("shop"), filepath.Base(path), f)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "imported %d products for shop %s\n", len(snapshot.Products), snapshot.ShopID)
	return nil
}

func runCacheFlush(c *cli.Context) error {
	catalogCache, enabled, err := openCatalogCache()
	if err != nil {
		return fmt.Errorf("open catalog cache: %w", err)
	}
	if !enabled {
		fmt.Fprintln(c.App.Writer, "catalog cache is disabled, nothing to flush")
		return nil
	}
	if err := catalogCache.InvalidateAll(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "catalog cache flushed")
	return nil
}

func newExporter(ctx context.Context) (*storage.PlanExporter, error) {
	cfg := config.Load().Storage
	store, err := storage.NewMinioClient(ctx, storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return storage.NewPlanExporter(store, "plans"), nil
}

func runExportsList(c *cli.Context) error {
	exp, err := newExporter(c.Context)
	if err != nil {
		return err
	}
	objects, err := exp.List(c.Context, c.String("shop"))
	if err != nil {
		return err
	}
	return printObjects(c.App.Writer, objects)
}

func printObjects(w io.Writer, objects []storage.ObjectInfo) error {
	for _, o := range objects {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", o.Key, o.Size); err != nil {
			return err
		}
	}
	return nil
}

func runExportsFetch(c *cli.Context) error {
	exp, err := newExporter(c.Context)
	if err != nil {
		return err
	}
	key := c.String("key")
	out := c.String("out")
	if out == "" {
		out = filepath.Base(key)
	}
	if err := exp.Fetch(c.Context, key, out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "saved %s to %s\n", key, out)
	return nil
}
