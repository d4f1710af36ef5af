// Package relay wires the routing core into one running process: it
// resolves the root address (statically or via ILDCP), builds the
// inbound HTTP handler, binds the listener, and serves until asked to
// shut down.
//
// The listen-configure-serve sequencing is grounded on the teacher's
// cmd/main.go (net.Listen, build the speaker, dial configured peers,
// start serving), generalized here from one hardcoded peer-add
// sequence to a config-driven startup, and supervised with errgroup
// instead of a bare goroutine + log.Println.
package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/coilhq/interledger-relay/internal/config"
	"github.com/coilhq/interledger-relay/internal/debuglog"
	"github.com/coilhq/interledger-relay/internal/ildcp"
	"github.com/coilhq/interledger-relay/internal/ilpaddr"
	"github.com/coilhq/interledger-relay/internal/inbound"
	"github.com/coilhq/interledger-relay/internal/upstream"
)

// shutdownGrace bounds how long Run waits for in-flight requests to
// finish once its context is cancelled.
const shutdownGrace = 10 * time.Second

// Options configures one relay process run.
type Options struct {
	Bind     string
	Compiled *config.Compiled
	Log      *logrus.Logger
}

// Run resolves the root address, builds the serving handler, binds
// Bind, and serves until ctx is cancelled, then shuts down gracefully.
// It returns nil only on a clean shutdown.
func Run(ctx context.Context, opts Options) error {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}

	upstreamClient := upstream.NewClient(opts.Compiled.Failures, log)

	root, err := resolveRoot(ctx, opts.Compiled, upstreamClient, log)
	if err != nil {
		return pkgerrors.Wrap(err, "relay: could not resolve root address")
	}
	log.WithFields(logrus.Fields{
		"address":     root.Address,
		"asset_scale": root.AssetScale,
		"asset_code":  root.AssetCode,
	}).Info("root address resolved")

	svc := &inbound.Service{
		Peers:             opts.Compiled.Peers,
		Routes:            opts.Compiled.Routes,
		Failures:          opts.Compiled.Failures,
		Upstream:          upstreamClient,
		RootAddress:       ilpaddr.Address(root.Address),
		RootAssetScale:    root.AssetScale,
		RootAssetCode:     root.AssetCode,
		PartitionKind:     opts.Compiled.PartitionKind,
		ServerMaxDuration: opts.Compiled.ServerMaxDuration,
		Log:               log,
	}
	handler := debuglog.Wrap(svc, opts.Compiled.Debug, log)

	listener, err := net.Listen("tcp", opts.Bind)
	if err != nil {
		return pkgerrors.Wrapf(err, "relay: could not bind %s", opts.Bind)
	}
	log.WithField("bind", opts.Bind).Info("listening")

	server := &http.Server{Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			return pkgerrors.Wrap(err, "relay: server exited")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// resolvedRoot is the root address/asset info, however it was obtained.
type resolvedRoot struct {
	Address    string
	AssetScale uint8
	AssetCode  string
}

func resolveRoot(ctx context.Context, compiled *config.Compiled, client *upstream.Client, log *logrus.Logger) (*resolvedRoot, error) {
	if compiled.RootStatic != nil {
		return &resolvedRoot{
			Address:    string(compiled.RootStatic.Address),
			AssetScale: compiled.RootStatic.AssetScale,
			AssetCode:  compiled.RootStatic.AssetCode,
		}, nil
	}

	log.WithField("parent_endpoint", compiled.RootDynamic.ParentEndpoint).Info("resolving root address via ildcp")
	resp, err := ildcp.Resolve(ctx, client, compiled.RootDynamic.ParentEndpoint, compiled.RootDynamic.ParentAuth)
	if err != nil {
		return nil, err
	}
	return &resolvedRoot{
		Address:    string(resp.Address),
		AssetScale: resp.AssetScale,
		AssetCode:  resp.AssetCode,
	}, nil
}
