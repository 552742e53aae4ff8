package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/sealedvote/config"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/service"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/voting"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	conf, err := config.Load(config.NewFlagSet(os.Args[0]), os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Init(conf.LogLevel, conf.LogOutput, nil)
	log.Infow("starting sealedvote",
		"datadir", conf.Datadir,
		"dbType", conf.DBType,
		"cryptoBackend", conf.CryptoBackend,
		"chainId", conf.ChainID,
		"admins", len(conf.Admins))

	if err := os.MkdirAll(conf.Datadir, 0o750); err != nil {
		log.Fatal(err)
	}
	database, err := metadb.New(conf.DBType, conf.DBPath())
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	censusDB, err := census.NewCensusDB(database)
	if err != nil {
		log.Fatalf("could not load census database: %v", err)
	}

	caps, err := voting.LoadCapabilities(stg, voting.BackendConfig{
		Name:               conf.CryptoBackend,
		CommitteeSize:      conf.CommitteeSize,
		CommitteeThreshold: conf.CommitteeThreshold,
		PaillierKeySize:    conf.PaillierKeySize,
	})
	if err != nil {
		log.Fatal(err)
	}
	caps.Allowlist = census.Verifier{}

	engine, err := voting.New(stg, caps, voting.Config{
		ChainID:   conf.ChainID,
		Admins:    conf.Admins,
		CacheSize: conf.CacheSize,
	})
	if err != nil {
		log.Fatal(err)
	}

	var gatherer prometheus.Gatherer
	if conf.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if err := metrics.Register(reg); err != nil {
			log.Fatal(err)
		}
		gatherer = reg
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	apiSrv := service.NewAPI(engine, censusDB, gatherer, conf.APIHost, conf.APIPort)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer apiSrv.Stop()
	host, port := apiSrv.HostPort()
	log.Infow("API server listening", "host", host, "port", port)

	finalizer := service.NewFinalizer(engine, conf.FinalizeInterval)
	if err := finalizer.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer finalizer.Stop()

	<-ctx.Done()
	log.Infow("shutting down")
}
