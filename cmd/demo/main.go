// Command demo runs a fully observed traffic-light machine: structured
// logs, Prometheus metrics, OpenTelemetry traces, and a live inspector
// with a websocket transition feed.
//
// Usage:
//
//	demo [-config light.yaml] [-inspect :8090] [-metrics :9090]
//
// Without -config the machine is built in code.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxionlab/fsmkit/pkg/config"
	"github.com/fluxionlab/fsmkit/pkg/core"
	"github.com/fluxionlab/fsmkit/pkg/inspector"
	"github.com/fluxionlab/fsmkit/pkg/machine"
	fsmprom "github.com/fluxionlab/fsmkit/pkg/observability/prometheus"
	"github.com/fluxionlab/fsmkit/pkg/observability/tracing"
)

func main() {
	configPath := flag.String("config", "", "machine definition file (YAML or JSON)")
	inspectAddr := flag.String("inspect", ":8090", "inspector listen address")
	metricsAddr := flag.String("metrics", ":9090", "metrics listen address")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := core.NewDefaultLogger()

	shutdownTracing, err := tracing.Initialize(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warnf("tracing shutdown: %v", err)
		}
	}()

	m, err := buildMachine(*configPath, logger)
	if err != nil {
		log.Fatalf("Failed to build machine: %v", err)
	}

	insp := inspector.NewInspector(*inspectAddr, logger)
	insp.Register(m)
	insp.Start()
	defer insp.Stop(context.Background())

	m.AddObserver(machine.NewLoggingObserver[string](logger))
	m.AddObserver(fsmprom.NewObserver[string](m.ID(), nil))
	m.AddObserver(tracing.NewObserver[string](m.ID(), nil))
	m.AddObserver(inspector.Feed[string](insp, m.ID()))

	metricsServer := &http.Server{
		Addr:              *metricsAddr,
		Handler:           promhttp.HandlerFor(fsmprom.DefaultRegistry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	defer metricsServer.Shutdown(context.Background())
	logger.Infof("metrics listening on %s", *metricsAddr)

	if !m.Start(ctx) {
		log.Fatal("Failed to start machine")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Host tick loop. The machine advances only here, on this
	// goroutine, with real elapsed time as dt.
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			m.Process(ctx, machine.ProcessUpdate, dt)
		case sig := <-sigCh:
			logger.Infof("received %v, shutting down", sig)
			m.Teardown()
			return
		}
	}
}

// buildMachine loads the definition file when given, and falls back to
// a built-in traffic light.
func buildMachine(path string, logger core.Logger) (*machine.Machine[string], error) {
	if path != "" {
		def, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		return def.Build(machine.WithLogger[string](logger))
	}

	m := machine.NewMachine[string](
		machine.WithID[string]("traffic-light"),
		machine.WithLogger[string](logger),
	)

	m.AddState("red").
		WithTimeout(5, "green").
		WithTags("stop")
	m.AddState("green").
		WithMinTime(2).
		WithTimeout(8, "yellow").
		WithTags("go")
	m.AddState("yellow").
		WithLockMode(machine.LockTransitions).
		WithTimeout(2, "red").
		WithTags("caution")
	m.AddState("flashing").
		WithTags("fault")

	// Maintenance mode overrides the cycle from any state.
	m.AddGlobalTransition("flashing").
		WithPriority(100).
		OnEvent("fault").
		Instant()
	m.AddTransition("flashing", "red").
		OnEvent("clear").
		Instant()

	m.AddEventListener("fault", func(ctx context.Context, event string) {
		logger.Warnf("fault reported, switching to flashing")
	})

	return m, nil
}
