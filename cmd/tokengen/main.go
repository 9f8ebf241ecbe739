package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"care-inventory-backend/internal/config"
	"care-inventory-backend/internal/security"
)

// tokengen issues staff tokens for the HTTP and gRPC APIs.
func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	subject := flag.String("subject", "", "Staff member or device the token is issued to")
	role := flag.String("role", string(security.RoleOperator), "Token role: operator or viewer")
	expiry := flag.Duration("expiry", 0, "Token lifetime; defaults to security.token_expiry_hours")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-subject is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Security.JWTSecret == "" {
		log.Fatal("security.jwt_secret is not configured; authentication is disabled")
	}

	lifetime := cfg.TokenExpiry()
	if *expiry > 0 {
		lifetime = *expiry
	}

	token, err := security.NewTokenManager(cfg.Security.JWTSecret, lifetime).GenerateToken(*subject, security.Role(*role))
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
	log.Printf("Issued %s token for %q, valid until %s", *role, *subject, time.Now().Add(lifetime).Format(time.RFC3339))
}
