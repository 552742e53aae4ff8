package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vocdoni/sealedvote/api"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/voting"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	engine   *voting.Engine
	census   *census.CensusDB
	gatherer prometheus.Gatherer
	api      *api.API
	mu       sync.Mutex
	host     string
	port     int
}

// NewAPI creates a new APIService instance. censusDB and gatherer are
// optional.
func NewAPI(engine *voting.Engine, censusDB *census.CensusDB, gatherer prometheus.Gatherer, host string, port int) *APIService {
	return &APIService{
		engine:   engine,
		census:   censusDB,
		gatherer: gatherer,
		host:     host,
		port:     port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&api.APIConfig{
		Host:     as.host,
		Port:     as.port,
		Engine:   as.engine,
		Census:   as.census,
		Gatherer: as.gatherer,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := as.api.Close(ctx); err != nil {
		log.Warnw("failed to stop API server", "error", err.Error())
	}
	as.api = nil
}

// HostPort returns the host and port of the API server. Once started, the
// port is the one actually bound.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		if addr, ok := as.api.Addr().(*net.TCPAddr); ok {
			return as.host, addr.Port
		}
	}
	return as.host, as.port
}
