package main

// GET /products/list - For listing products, optionally by ?category= and ?q=
// GET /products/categories - For listing categories
// POST /products - Create a new product
// PATCH /products/{id} - Update some fields of a product
// DELETE /products/{id} - Remove a product from the catalog
// GET /cart/list - For listing cart products
// POST /cart/add - To add a product to the cart
// POST /cart/quantity - To set a line quantity, 0 removes it
// POST /checkout/order - For a checkout
// GET /orders/list - Order history, newest first
// GET /wallet, POST /wallet/connect, POST /wallet/disconnect - Wallet session
// GET|PATCH /profiles/{role}, GET /dashboard/{role} - Owner and customer panels
// POST /session/logout - Log out and disconnect the wallet
// GET /ws - Order and catalog notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/handler"
	"storefront/notify"
	"storefront/obs"
	"storefront/service"
	"storefront/store"
	"storefront/wallet"
)

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	return store.NewMemoryStore(), nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "store", cfg.StoreDriver, "addr", cfg.HTTPAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if cfg.SeedCatalog {
		n, err := store.Seed(context.Background(), st, store.DemoCatalog())
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		obs.Logger.Info("catalog_seeded", "products", n)
	}

	hub := notify.NewHub()
	go hub.Run()
	defer hub.Stop()

	svc := service.NewService(st, wallet.NewSimulated(cfg.WalletAddress), cfg.OwnerWalletAddress,
		service.WithPublisher(hub))
	h := handler.NewHandler(svc, http.HandlerFunc(hub.ServeWS))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute, // checkout waits on the wallet prompt
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		obs.Logger.Info("shutdown_signal", "signal", s.String())
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		obs.Logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}
