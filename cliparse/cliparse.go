package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                int
	DatabaseURL         string
	DatabaseType        string
	AdminKeySalt        string
	VoterTokenSalt      string
	ReceiptSigningSeed  string
	IdentityProviderURL string
	IdentityTimeout     time.Duration
	RevocationFreshness time.Duration
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("ballotbox", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.IdentityProviderURL, "identity-url", "", "Identity provider base URL")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.VoterTokenSalt, "token-salt", "", "Voter token salt (prefer env)")
	fs.StringVar(&cfg.ReceiptSigningSeed, "receipt-seed", "", "Hex Ed25519 seed for receipt signing (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3521 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.IdentityProviderURL == "" {
		cfg.IdentityProviderURL = os.Getenv("IDENTITY_PROVIDER_URL")
	}
	if cfg.IdentityProviderURL == "" {
		return Config{}, errors.New("identity provider URL required (use -identity-url or IDENTITY_PROVIDER_URL env)")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.VoterTokenSalt == "" {
		cfg.VoterTokenSalt = os.Getenv("VOTER_TOKEN_SALT")
	}
	if cfg.VoterTokenSalt == "" {
		return Config{}, errors.New("VOTER_TOKEN_SALT required")
	}

	if cfg.ReceiptSigningSeed == "" {
		cfg.ReceiptSigningSeed = os.Getenv("RECEIPT_SIGNING_SEED")
	}
	if cfg.ReceiptSigningSeed == "" {
		return Config{}, errors.New("RECEIPT_SIGNING_SEED required")
	}

	// Tunables with safe defaults
	cfg.IdentityTimeout = 5 * time.Second
	if v := os.Getenv("IDENTITY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.New("invalid IDENTITY_TIMEOUT env variable")
		}
		cfg.IdentityTimeout = d
	}

	cfg.RevocationFreshness = 60 * time.Second
	if v := os.Getenv("REVOCATION_FRESHNESS"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errors.New("invalid REVOCATION_FRESHNESS env variable")
		}
		cfg.RevocationFreshness = d
	}

	return cfg, nil
}
