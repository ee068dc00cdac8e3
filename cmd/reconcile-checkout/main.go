package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/config"
	"github.com/deshikart/shopapi/internal/repository/postgres"
	"github.com/deshikart/shopapi/internal/service"
)

// Ops tool: finalize a paid checkout whose order creation was interrupted,
// e.g. a crash between the payment confirmation and the order insert. Safe
// to re-run; an already-finalized checkout is a no-op.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/reconcile-checkout/main.go <transaction-id>")
		fmt.Println("Example: go run cmd/reconcile-checkout/main.go \"TXN-1A2B3C4D-1724900000000\"")
		os.Exit(1)
	}

	tranID := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	ctx := context.Background()
	checkout, err := repos.Checkout.GetByTransactionID(ctx, tranID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load checkout: %v\n", err)
		os.Exit(1)
	}

	if !checkout.IsPaid {
		fmt.Fprintf(os.Stderr, "Checkout %s is not paid (status %s); nothing to reconcile\n",
			checkout.ID, checkout.PaymentStatus)
		os.Exit(1)
	}

	// Cart clearing and event publishing are skipped here; this tool only
	// repairs the checkout-to-order record.
	finalizer := service.NewFinalizerService(repos, service.NopClearer{}, service.NopPublisher{}, logger)
	order, err := finalizer.Finalize(ctx, checkout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to finalize checkout: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Checkout reconciled\n\n")
	fmt.Printf("Checkout ID: %s\n", checkout.ID)
	fmt.Printf("Transaction: %s\n", tranID)
	fmt.Printf("Order ID: %s\n", order.ID)
	fmt.Printf("Order Status: %s\n", order.Status)
}
