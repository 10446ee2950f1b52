package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/marcelsud/sumit-gateway/config"
	"github.com/marcelsud/sumit-gateway/connector"
	"github.com/marcelsud/sumit-gateway/internal/app"
	"github.com/marcelsud/sumit-gateway/sumit"
)

/* cli - checks the configured gateway credentials
 * Usage: cli [locale]
 * Exit codes: 0 = valid, 1 = rejected, 2 = configuration or transport failure
 */

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SumitTimeout()+5*time.Second)
	defer cancel()
	if len(os.Args) > 1 {
		ctx = sumit.WithLocale(ctx, os.Args[1])
	}

	a, err := app.New(ctx, cfg, os.Stderr)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	defer a.Close(context.Background())

	fmt.Printf("Checking credentials for company %d against %s\n", cfg.SumitCompanyID, a.Gateway.Environment().BaseURL())
	err = a.Gateway.CheckCredentials(ctx)

	var rejection *sumit.DomainRejection
	var transport *connector.TransportError
	switch {
	case err == nil:
		fmt.Println("✓ credentials are valid")
	case errors.As(err, &rejection):
		fmt.Printf("❌ gateway rejected the credentials: %s\n", rejection.Message)
		os.Exit(1)
	case errors.As(err, &transport):
		fmt.Printf("❌ gateway unreachable after %d attempt(s): %v\n", transport.Attempts, transport.Err)
		os.Exit(2)
	default:
		fmt.Printf("❌ %v\n", err)
		os.Exit(2)
	}
}
