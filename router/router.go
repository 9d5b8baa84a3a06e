// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/ballotbox/auditledger"
	"github.com/danielhkuo/ballotbox/ballotstore"
	"github.com/danielhkuo/ballotbox/cliparse"
	"github.com/danielhkuo/ballotbox/handlers"
	"github.com/danielhkuo/ballotbox/ledger"
	"github.com/danielhkuo/ballotbox/middleware"
	"github.com/danielhkuo/ballotbox/receipt"
	"github.com/danielhkuo/ballotbox/submit"
)

// Deps carries the wired components the routes dispatch to. Built once in
// main (or testutil for tests).
type Deps struct {
	DB       *sql.DB
	Cfg      cliparse.Config
	Orch     *submit.Orchestrator
	Elig     *ledger.Ledger
	Ballots  *ballotstore.Store
	Receipts *receipt.Issuer
	Audit    *auditledger.Ledger
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(d.DB, d.Cfg)
	ballotHandler := handlers.NewBallotHandler(d.Orch, d.Elig)
	resultsHandler := handlers.NewResultsHandler(d.DB, d.Ballots, d.Audit)
	receiptHandler := handlers.NewReceiptHandler(d.DB, d.Receipts, d.Audit)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election management (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("POST /elections/{id}/candidates", middleware.WithLogging(electionHandler.AddCandidate))
	mux.HandleFunc("POST /elections/{id}/open", middleware.WithLogging(electionHandler.OpenElection))
	mux.HandleFunc("POST /elections/{id}/close", middleware.WithLogging(electionHandler.CloseElection))

	// Voting operations
	mux.HandleFunc("POST /elections/{id}/ballots", middleware.WithLogging(ballotHandler.SubmitBallot))
	mux.HandleFunc("GET /elections/{id}/eligibility", middleware.WithLogging(ballotHandler.GetEligibility))

	// Browsing and results (public, results sealed until closed)
	mux.HandleFunc("GET /elections", middleware.WithLogging(resultsHandler.ListElections))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(resultsHandler.GetElection))
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /elections/{id}/audit-log", middleware.WithLogging(resultsHandler.GetAuditLog))

	// Receipt verification (public)
	mux.HandleFunc("GET /receipts/{id}", middleware.WithLogging(receiptHandler.GetReceipt))
	mux.HandleFunc("POST /receipts/verify", middleware.WithLogging(receiptHandler.VerifyReceipt))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ballotbox API v1"))
	})

	return mux
}
