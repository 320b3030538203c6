// guardian-probe is a manual smoke test for the API client against a
// running Guardian service (typically guardian-stub). It walks the main
// flows end to end and logs each step.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"guardian/config"
	"guardian/internal/api"
	"guardian/internal/logging"
	"guardian/internal/tokens"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "guardian-probe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("base-url", "http://localhost:8080", "Guardian service base URL")
	credentialsPath := flag.String("credentials", "", "Path to the SQLite credential store (in-memory when omitted)")
	flag.Parse()

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: "text",
		Level:  logging.ParseLevel("debug"),
	})

	full := config.Config{Client: config.ClientConfig{
		BaseURL:         *baseURL,
		CredentialsPath: *credentialsPath,
	}}
	if err := full.Validate(); err != nil {
		return err
	}

	var store tokens.Store = tokens.NewMemStore()
	if path := full.Client.CredentialsPath; path != "" {
		sqliteStore, err := tokens.NewSQLiteStore(path)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	client := api.New(full.Client, store, logger)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	health, err := client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	logger.Info("Health check", "status", health.Status, "service", health.Service)

	email := fmt.Sprintf("probe-%d@example.com", time.Now().UnixNano())
	user, err := client.Auth().Register(ctx, email, "probe-password", "guardian")
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	logger.Info("Registered", "user_id", user.ID, "email", user.Email)

	point, err := client.Location().Send(ctx, 52.3702, 4.8952, 10.0, "probe")
	if err != nil {
		return fmt.Errorf("send location failed: %w", err)
	}
	logger.Info("Location reported", "location_id", point.ID)

	zone, err := client.SafeZones().Create(ctx, "Home", 52.3702, 4.8952, 250, "home")
	if err != nil {
		return fmt.Errorf("create safe zone failed: %w", err)
	}
	logger.Info("Safe zone created", "zone_id", zone.ID)

	status, err := client.SafeZones().CheckGeofence(ctx, 52.3702, 4.8952)
	if err != nil {
		return fmt.Errorf("geofence check failed: %w", err)
	}
	logger.Info("Geofence check", "inside", status.InsideSafeZone)

	if err := client.Auth().Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	logger.Info("Logged out")

	return nil
}
