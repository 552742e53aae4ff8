// Package api serves the voting core over HTTP. Mutating requests are signed
// with an Ethereum key and the recovered address acts as the requester.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/voting"
)

// APIConfig holds the configuration of the API HTTP server.
type APIConfig struct {
	Host   string
	Port   int
	Engine *voting.Engine
	// Census is optional, census endpoints are only registered if set.
	Census *census.CensusDB
	// Gatherer is optional, /metrics is only registered if set.
	Gatherer prometheus.Gatherer
}

// API is the HTTP server of the voting core.
type API struct {
	router   *chi.Mux
	engine   *voting.Engine
	census   *census.CensusDB
	gatherer prometheus.Gatherer
	server   *http.Server
	addr     net.Addr
}

// New creates the API and starts serving on the configured host and port.
// Port 0 picks a free port, see Addr.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing voting engine")
	}
	a := &API{
		engine:   conf.Engine,
		census:   conf.Census,
		gatherer: conf.Gatherer,
	}
	a.initRouter()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	a.addr = ln.Addr()
	a.server = &http.Server{Handler: a.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("starting API server", "address", a.addr.String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	return a.addr
}

// Close stops the server.
func (a *API) Close(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *API) register(method, endpoint string, h http.HandlerFunc) {
	log.Infow("register handler", "endpoint", endpoint, "method", method)
	a.router.Method(method, endpoint, h)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	a.register(http.MethodGet, PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})

	a.register(http.MethodGet, EncryptionKeyEndpoint, a.encryptionKey)

	a.register(http.MethodPost, ProposalsEndpoint, a.newProposal)
	a.register(http.MethodGet, ProposalsEndpoint, a.listProposals)
	a.register(http.MethodGet, ProposalEndpoint, a.proposal)
	a.register(http.MethodPost, ProposalCancelEndpoint, a.cancelProposal)
	a.register(http.MethodPost, ProposalFinalizeEndpoint, a.finalizeProposal)
	a.register(http.MethodGet, ProposalResultEndpoint, a.proposalResult)
	a.register(http.MethodGet, ProposalVoterEndpoint, a.voter)
	a.register(http.MethodGet, ProposalDelegationsEndpoint, a.delegations)

	a.register(http.MethodPost, VotesEndpoint, a.newVote)
	a.register(http.MethodPost, DelegationsEndpoint, a.newDelegation)
	a.register(http.MethodPost, BalancesEndpoint, a.setBalance)
	a.register(http.MethodGet, GetBalanceEndpoint, a.balance)

	if a.census != nil {
		a.register(http.MethodPost, NewCensusEndpoint, a.newCensus)
		a.register(http.MethodPost, AddCensusParticipantsEndpoint, a.addCensusParticipants)
		a.register(http.MethodGet, GetCensusRootEndpoint, a.getCensusRoot)
		a.register(http.MethodGet, GetCensusSizeEndpoint, a.getCensusSize)
		a.register(http.MethodDelete, DeleteCensusEndpoint, a.deleteCensus)
		a.register(http.MethodGet, GetCensusProofEndpoint, a.getCensusProof)
	}
	if a.gatherer != nil {
		log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
		a.router.Handle(MetricsEndpoint, metrics.Handler(a.gatherer))
	}
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
