// Command ilp-relay runs the Interledger relay connector: it loads a
// RELAY_CONFIG document, resolves its root address, and serves inbound
// ILP Prepare packets until terminated.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coilhq/interledger-relay/internal/config"
	"github.com/coilhq/interledger-relay/internal/relay"
)

func main() {
	os.Exit(run())
}

func run() int {
	bindFlag := flag.String("bind", "", "address to bind (overrides RELAY_BIND)")
	configFileFlag := flag.String("config-file", "", "path to a RELAY_CONFIG JSON file (overrides RELAY_CONFIG)")
	logLevelFlag := flag.String("log-level", "info", "logrus level name")
	flag.Parse()

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevelFlag)
	if err != nil {
		log.WithError(err).Error("invalid -log-level, defaulting to info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	bind := *bindFlag
	if bind == "" {
		bind = os.Getenv("RELAY_BIND")
	}
	if bind == "" {
		log.Error("no bind address: set -bind or RELAY_BIND")
		return 1
	}

	raw, err := loadConfigBytes(*configFileFlag)
	if err != nil {
		log.WithError(err).Error("could not load configuration")
		return 1
	}

	compiled, err := config.Load(raw)
	if err != nil {
		log.WithError(err).Error("could not parse configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay.Run(ctx, relay.Options{Bind: bind, Compiled: compiled, Log: log}); err != nil {
		log.WithError(err).Error("relay exited with an error")
		return 1
	}
	return 0
}

func loadConfigBytes(configFile string) ([]byte, error) {
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	raw := os.Getenv("RELAY_CONFIG")
	if raw == "" {
		return nil, pkgerrors.New("no configuration: set -config-file or RELAY_CONFIG")
	}
	return []byte(raw), nil
}
