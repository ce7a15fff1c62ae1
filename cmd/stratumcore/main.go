// Command stratumcore connects to a single Stratum-v1 pool, mines
// against whatever job and difficulty it is assigned, and submits any
// share the scanner finds. CLI parsing and the
// TOML config file are ambient concerns (config.Parse); the mining
// session itself lives in internal/client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/config"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/client"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/hashcore"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/metrics"
	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/scanner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts, err := config.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logrus.NewEntry(log)

	if opts.SelfTest {
		digest := hashcore.Sha256d(make([]byte, 80))
		fmt.Printf("%x\n", digest)
		return 0
	}

	if opts.Handshake {
		return runHandshakeOnly(opts, entry)
	}

	if opts.Live {
		return runLive(opts, entry)
	}

	fmt.Fprintln(os.Stderr, "nothing to do; try --handshake, --live or --selftest")
	return 2
}

func runHandshakeOnly(opts config.Options, log *logrus.Entry) int {
	cfg := buildClientConfig(opts)
	cl := client.New(cfg, log, nil)

	if err := cl.Handshake(); err != nil {
		log.WithError(err).Error("handshake failed")
		return 1
	}
	return 0
}

func runLive(opts config.Options, log *logrus.Entry) int {
	cfg := buildClientConfig(opts)

	var sinks []metrics.Sink
	if opts.MetricsOutPath != "" {
		sinks = append(sinks, metrics.NewJSONFileSink(opts.MetricsOutPath))
	}
	if opts.PrometheusAddr != "" {
		sinks = append(sinks, metrics.NewPrometheusSink())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: opts.PrometheusAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("prometheus listener stopped")
			}
		}()
	}

	cl := client.New(cfg, log, metrics.Fanout(sinks))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cl.Stop()
		cancel()
	}()

	if err := cl.RunWithReconnect(ctx); err != nil {
		log.WithError(err).Error("live session ended with error")
		return 1
	}
	return 0
}

func buildClientConfig(opts config.Options) client.Config {
	mode := scanner.ModeBaseline
	if opts.Mode == string(scanner.ModeVireon) {
		mode = scanner.ModeVireon
	}

	var suggest *float64
	if !opts.NoSuggest {
		v := opts.SuggestDifficulty
		if v <= 0 {
			v = 1
		}
		suggest = &v
	}

	batch := opts.BatchNonces
	if batch == 0 {
		batch = 200_000
	}

	return client.Config{
		Host:              opts.Host,
		Port:              opts.Port,
		Username:          opts.User,
		Password:          opts.Password,
		Timeout:           opts.TimeoutDuration(),
		BatchNonces:       batch,
		StaleSeconds:      opts.StaleDuration(),
		SuggestDifficulty: suggest,
		NonceMode:         mode,
		NonceStart:        opts.NonceStart,
		MaxShares:         opts.MaxShares,
		RunDuration:       opts.RunDuration(),
		LogEvery:          time.Duration(opts.LogEverySeconds * float64(time.Second)),
	}
}
