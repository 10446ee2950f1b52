package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/sumit-gateway/routes"
)

/* validate-routes - Standalone CLI tool to validate routes.yaml
 * Usage: go run cmd/validate-routes/main.go [routes.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	// Get routes file path from args or use default
	routesFile := "routes.yaml"
	if len(os.Args) > 1 {
		routesFile = os.Args[1]
	}

	fmt.Printf("Validating routes file: %s\n", routesFile)
	fmt.Println(strings.Repeat("-", 50))

	// Create loader and attempt to load routes
	loader := routes.NewLoader()
	if err := loader.Load(routesFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ VALIDATION PASSED\n\n")

	endpoints := loader.Endpoints()
	fmt.Printf("Gateway endpoints (%d):\n", len(endpoints))
	for _, p := range endpoints {
		fmt.Printf("   %-45s family=%-7s key=%-7s timeout=%-5s mutation=%t retry_on_rejection=%t\n",
			p.Path, p.Family, p.Key, p.Timeout, p.Mutation, p.RetryOnRejection)
	}

	loadedRoutes := loader.List()
	fmt.Printf("\nLoaded %d route(s):\n", len(loadedRoutes))
	for i, route := range loadedRoutes {
		fmt.Printf("\n%d. Route: %s\n", i+1, route.TargetID)
		fmt.Printf("   Target URL:      %s\n", route.TargetURL)
		fmt.Printf("   Signed:          %t\n", route.SigningSecret != "")
		fmt.Printf("   Event types:     %s\n", eventTypes(route.EventTypes))
		fmt.Printf("   Expected Status: %d\n", route.ExpectedStatus)
		if route.Timeout > 0 {
			fmt.Printf("   Timeout:         %s\n", route.Timeout)
		}
	}

	fmt.Printf("\n✓ All routes are valid!\n")
	os.Exit(0)
}

func eventTypes(types []string) string {
	if len(types) == 0 {
		return "*"
	}
	return strings.Join(types, ", ")
}
