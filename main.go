package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/auth"
	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/credential"
	"github.com/danielhkuo/ballotbox/db"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/receipt"
	"github.com/danielhkuo/ballotbox/router"
	"github.com/danielhkuo/ballotbox/submit"
)

func main() {
	var err error

	// Load .env if present (development convenience)
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the database
	driver := "postgres"
	if cfg.DatabaseType == "sqlite" {
		driver = "sqlite"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Wire components
	signingKey, err := auth.ReceiptKeyFromSeed(cfg.ReceiptSigningSeed)
	if err != nil {
		slog.Error("invalid receipt signing seed", "error", err)
		os.Exit(1)
	}

	provider := credential.NewHTTPProvider(cfg.IdentityProviderURL, cfg.IdentityTimeout)
	verifier := credential.NewVerifier(provider, cfg.RevocationFreshness)
	elig := ledger.New(dbConn)
	ballots := ballotstore.New(dbConn, cfg.VoterTokenSalt)
	receipts := receipt.NewIssuer(signingKey)
	audit := auditledger.New(dbConn)
	orch := submit.NewOrchestrator(dbConn, verifier, elig, ballots, receipts, audit)

	// Create router
	mux := router.NewRouter(router.Deps{
		DB:       dbConn,
		Cfg:      cfg,
		Orch:     orch,
		Elig:     elig,
		Ballots:  ballots,
		Receipts: receipts,
		Audit:    audit,
	})

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
