// Seed prepares a development database and prints bearer tokens for local testing.
// Idempotent: the default policy is only created when none exists and profiles are upserted.
// Requires JWT_PRIVATE_KEY to mint tokens; pass -tokens-only to skip the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"

	"sessionguard/internal/config"
	"sessionguard/internal/db"
	"sessionguard/internal/logging"
	"sessionguard/internal/policy"
	policyrepo "sessionguard/internal/policy/repository"
	"sessionguard/internal/security"
)

const (
	seedActor       = "seed"
	serviceSubject  = "dev-gateway"
	operatorSubject = "dev-operator@example.com"
)

var devProfiles = []struct {
	userID, displayName, planTier string
}{
	{"dev-user-001", "Dev User", "pro"},
	{"dev-user-002", "Member User", "free"},
}

func main() {
	tokensOnly := flag.Bool("tokens-only", false, "Only mint tokens; do not touch the database")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !*tokensOnly {
		if cfg.DatabaseURL == "" {
			logging.Fatal().Msg("DATABASE_URL is not set; set it or pass -tokens-only")
		}
		if err := seedDatabase(ctx, cfg); err != nil {
			logging.Fatal().Err(err).Msg("seed")
		}
		logging.Info().Msg("seed completed")
	}

	if err := printTokens(cfg); err != nil {
		logging.Fatal().Err(err).Msg("mint tokens")
	}
}

func seedDatabase(ctx context.Context, cfg *config.Config) error {
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	policies := policy.NewStore(policyrepo.NewPostgresRepository(conn), 0)
	p, created, err := policies.EnsureDefault(ctx, cfg.DefaultMaxAddresses, cfg.DefaultBlockMinutes, seedActor)
	if err != nil {
		return fmt.Errorf("default policy: %w", err)
	}
	if created {
		logging.Info().Int("max_addresses", p.MaxAddresses).Int("block_minutes", p.BlockDurationMinutes).Msg("created default security policy")
	} else {
		logging.Info().Str("policy_id", p.ID).Msg("security policy already present")
	}

	sb := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(conn)
	for _, prof := range devProfiles {
		if _, err := sb.Insert(cfg.IdentityProfilesTable).
			Columns("user_id", "display_name", "plan_tier").
			Values(prof.userID, prof.displayName, prof.planTier).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name, plan_tier = EXCLUDED.plan_tier").
			ExecContext(ctx); err != nil {
			return fmt.Errorf("upsert profile %s: %w", prof.userID, err)
		}
	}
	return nil
}

func printTokens(cfg *config.Config) error {
	signer, pub, err := security.LoadKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	for _, id := range []struct {
		subject, role string
	}{
		{serviceSubject, security.RoleService},
		{operatorSubject, security.RoleOperator},
	} {
		tok, exp, err := tokens.Issue(id.subject, id.role)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s (%s, expires %s):\n%s\n\n", id.subject, id.role, exp.Format(time.RFC3339), tok)
	}
	return nil
}
