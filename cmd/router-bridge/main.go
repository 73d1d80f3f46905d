package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/swoga/router-bridge/config"
	"github.com/swoga/router-bridge/mqtt"
	"github.com/swoga/router-bridge/platform"
	"github.com/swoga/router-bridge/server"
	"go.uber.org/zap"
)

var (
	sc      *config.SafeConfig
	active  atomic.Pointer[platform.Platform]
	restart = make(chan struct{}, 1)
	log     *zap.Logger
)

func main() {
	// parse command line args
	configFile := flag.String("config.file", "config.yml", "")
	debug := flag.Bool("debug", false, "")
	printVersion := flag.Bool("version", false, "")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Print("router-bridge"))
		return
	}

	// inital config load
	sc = config.New(*configFile)
	err := sc.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %s\n", err)
		os.Exit(1)
	}
	cfg := sc.Get()

	log, err = config.NewLogger(cfg.Logging, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %s\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting router-bridge", zap.String("version", version.Version), zap.String("revision", version.Revision))

	prometheus.MustRegister(versioncollector.NewCollector("router_bridge"))

	p, err := platform.FromConfig(cfg, log)
	if err != nil {
		log.Fatal("error setting up routers", zap.Error(err))
	}
	active.Store(p)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := mqtt.New(cfg.MQTT, p, log)
	bridge.Start()
	defer bridge.Stop()

	// setup config reload
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	reloadRequest := make(chan chan error)
	go func() {
		for {
			var err error
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Debug("config reload triggerd by SIGHUP")
				err = reload(bridge)
			case reloadResult := <-reloadRequest:
				log.Debug("config reload triggerd by API")
				err = reload(bridge)
				reloadResult <- err
			}
			if err != nil {
				log.Error("error reloading config", zap.Error(err))
			} else {
				log.Info("reloaded config file")
			}
		}
	}()

	// polling loop, restarted with the new platform after every reload
	go func() {
		for {
			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				active.Load().Run(runCtx, sc.Get().ScanInterval, bridge.PublishStates)
			}()

			select {
			case <-ctx.Done():
				cancel()
				<-done
				return
			case <-restart:
				cancel()
				<-done
			}
		}
	}()

	// start http server
	srv := server.New(
		sc.Get,
		active.Load,
		func() error {
			return requestReload(ctx, reloadRequest)
		},
		log,
	)

	log.Info("starting http server", zap.String("metrics_path", cfg.MetricsPath), zap.String("probe_path", cfg.ProbePath), zap.String("listen", cfg.Listen))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err = srv.ListenAndServe(cfg.Listen)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("error starting http server", zap.Error(err))
	}
	log.Info("shutting down")
}

var errShuttingDown = errors.New("shutting down")

// requestReload hands a reload to the reload loop and waits for its result.
// The loop is gone once ctx is done.
func requestReload(ctx context.Context, requests chan<- chan error) error {
	result := make(chan error, 1)
	select {
	case requests <- result:
	case <-ctx.Done():
		return errShuttingDown
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return errShuttingDown
	}
}

// reload loads the config file and replaces the platform. The old platform
// stays active when either step fails.
func reload(bridge *mqtt.Bridge) error {
	err := sc.LoadConfig()
	if err != nil {
		return err
	}
	p, err := platform.FromConfig(sc.Get(), log)
	if err != nil {
		return err
	}
	active.Store(p)
	bridge.SetPlatform(p)
	select {
	case restart <- struct{}{}:
	default:
	}
	return nil
}
