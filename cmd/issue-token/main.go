// Command issue-token mints an access token for an existing staff member. Password
// login lives outside this service; operators use this for service accounts and
// local testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/parkops/parkops-api/internal/models"
	"github.com/parkops/parkops-api/internal/service"
	"github.com/parkops/parkops-api/pkg/config"
)

func main() {
	var (
		userID   string
		role     string
		location string
		ttl      time.Duration
	)
	flag.StringVar(&userID, "user", "", "employee id")
	flag.StringVar(&role, "role", "", "ADMIN, PARK_MANAGER, LOCATION_MANAGER, MAINTENANCE or STAFF")
	flag.StringVar(&location, "location", "", "location id (required for LOCATION_MANAGER)")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}

	auth := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: ttl,
		Issuer:            cfg.JWT.Issuer,
	})
	token, expiresAt, err := auth.IssueToken(userID, models.Role(role), location)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
