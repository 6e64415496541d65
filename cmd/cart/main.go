package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/catalog"
	"github.com/angelmondragon/cartsync/internal/slot"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type lookups interface {
	cart.StockService
	cart.ProductCatalog
}

// run executes one cart command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("cart", flag.ContinueOnError)
	flags.SetOutput(stderr)
	cmd := flags.String("cmd", "list", "cart command: list|add|remove|update|summary")
	productID := flags.Int("id", 0, "product id for add, remove and update")
	amount := flags.Int("amount", 0, "new amount for update")
	seed := flags.String("seed", "", "serve stock and products from this seed file instead of the catalog api")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logg := logger.New(logger.Options{ServiceName: "cart", Output: stderr})

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		return 1
	}

	logg = logger.New(logger.Options{
		ServiceName: "cart",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Output:      stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"backend": cfg.Storage.Backend,
	})

	source, err := buildLookups(cfg, *seed)
	if err != nil {
		logg.Error(ctx, "failed to build catalog lookups", err)
		return 1
	}

	store, closeSlot, err := slot.Open(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open cart slot", err)
		return 1
	}
	defer func() {
		if err := closeSlot(); err != nil {
			logg.Error(ctx, "error closing cart slot", err)
		}
	}()

	cartStore, err := cart.New(ctx, cart.Params{
		Slot:    store,
		Key:     cfg.Storage.Key,
		Stock:   source,
		Catalog: source,
		Notifier: cart.NotifierFunc(func(_ context.Context, n cart.Notice) {
			fmt.Fprintln(stderr, n.Message)
		}),
		Logger:      logg,
		OnMalformed: cfg.Cart.OnMalformed,
		LockTimeout: cfg.Cart.LockTimeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to load cart", err)
		return 1
	}

	switch *cmd {
	case "list":
	case "summary":
		return writeJSON(stdout, cartStore.Summary())
	case "add":
		err = cartStore.AddProduct(ctx, *productID)
	case "remove":
		err = cartStore.RemoveProduct(ctx, *productID)
	case "update":
		err = cartStore.UpdateProductAmount(ctx, cart.UpdateProductAmount{ProductID: *productID, Amount: *amount})
	default:
		fmt.Fprintln(stderr, "unknown -cmd value:", *cmd)
		return 2
	}
	if err != nil {
		return 1
	}
	return writeJSON(stdout, cartStore.Cart())
}

func buildLookups(cfg *config.Config, seedPath string) (lookups, error) {
	if seedPath != "" {
		seed, err := catalog.LoadSeedFile(seedPath)
		if err != nil {
			return nil, err
		}
		return catalog.NewRepository(seed)
	}
	return catalog.NewClient(cfg.Catalog.BaseURL, catalog.WithTimeout(cfg.Catalog.Timeout))
}

func writeJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return 1
	}
	return 0
}
