package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/af-corp/aegis-admin/internal/auth"
	"github.com/af-corp/aegis-admin/internal/config"
)

func main() {
	name := flag.String("name", "", "human-friendly key name (required)")
	role := flag.String("role", auth.RoleViewer, "key role: viewer or admin")
	team := flag.String("team", "", "team ID the key is scoped to (optional, omit for org-wide keys)")
	rpm := flag.Int("rpm", 0, "per-key model submission limit per minute (0 = service default)")
	env := flag.String("env", "prod", "environment prefix")
	expires := flag.String("expires", "365d", "expiry duration (e.g., 365d, 720h)")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nerror: -name is required")
		os.Exit(1)
	}
	if !auth.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "error: invalid role %q (use %s or %s)\n", *role, auth.RoleViewer, auth.RoleAdmin)
		os.Exit(1)
	}

	rawKey, err := auth.GenerateKey(*env)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}
	keyHash := auth.HashKey(rawKey)
	keyPrefix := auth.KeyPrefix(rawKey)

	dur, err := auth.ParseDuration(*expires)
	if err != nil {
		log.Fatalf("invalid expires: %v", err)
	}
	expiresAt := time.Now().Add(dur)

	dsn := *dbURL
	if dsn == "" {
		dsn = os.Getenv("AEGIS_ADMIN_DATABASE_URL")
	}
	if dsn == "" {
		dsn = config.DefaultConfig().Database.DSN()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	keyID := uuid.New()
	_, err = conn.Exec(ctx, `
		INSERT INTO admin_keys (id, key_hash, key_prefix, name, role, team_id, rpm_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, keyID, keyHash, keyPrefix, *name, *role, nilIfEmpty(*team), nilIfZero(*rpm), expiresAt)
	if err != nil {
		log.Fatalf("failed to insert key: %v", err)
	}

	fmt.Println("=== AEGIS Admin Key Generated ===")
	fmt.Println()
	fmt.Printf("  Key ID:     %s\n", keyID)
	fmt.Printf("  Key Prefix: %s\n", keyPrefix)
	fmt.Printf("  Name:       %s\n", *name)
	fmt.Printf("  Role:       %s\n", *role)
	if *team != "" {
		fmt.Printf("  Team:       %s\n", *team)
	}
	if *rpm > 0 {
		fmt.Printf("  Submit RPM: %d\n", *rpm)
	}
	fmt.Printf("  Expires:    %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("  Admin Key (save this, it will NOT be shown again):")
	fmt.Printf("  %s\n", rawKey)
	fmt.Println()
	fmt.Println("=================================")
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
