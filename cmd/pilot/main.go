// Package main is the operator binary: it opens the command link to a Tello,
// runs one control session and drives it from the selected front-end.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/barbamx/tello-drone-pilot/internal/adapter/udp"
	"github.com/barbamx/tello-drone-pilot/internal/api"
	"github.com/barbamx/tello-drone-pilot/internal/audit"
	"github.com/barbamx/tello-drone-pilot/internal/auth"
	"github.com/barbamx/tello-drone-pilot/internal/config"
	"github.com/barbamx/tello-drone-pilot/internal/frontend/gamepad"
	"github.com/barbamx/tello-drone-pilot/internal/frontend/tui"
	"github.com/barbamx/tello-drone-pilot/internal/session"
	"github.com/barbamx/tello-drone-pilot/internal/telemetry"
	"github.com/barbamx/tello-drone-pilot/internal/vehiclesim"
)

const Version = "1.0.0"

func main() {
	var (
		configPath string
		kind       string
		simulate   bool
		enableAPI  bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "YAML config file (default pilot.yaml or $PILOT_CONFIG)")
	pflag.StringVarP(&kind, "frontend", "f", "", "front-end: tui, gamepad, http or none")
	pflag.BoolVar(&simulate, "simulate", false, "fly an in-process simulated vehicle")
	pflag.BoolVar(&enableAPI, "api", false, "serve the HTTP intent API alongside the front-end")
	pflag.Parse()

	if err := run(configPath, kind, simulate, enableAPI); err != nil {
		log.Fatalf("pilot: %v", err)
	}
}

func run(configPath, kind string, simulate, enableAPI bool) error {
	// Step 1: Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if kind != "" {
		cfg.Frontend.Kind = kind
	}
	if pflag.CommandLine.Changed("api") {
		cfg.API.Enabled = enableAPI
	}
	if cfg.Frontend.Kind == "http" {
		cfg.API.Enabled = true
	}
	if cfg.Frontend.Kind == "tui" && !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Println("stdin is not a terminal, running without the console front-end")
		cfg.Frontend.Kind = "none"
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Session.LogPrefix == config.LoadBaseline().Session.LogPrefix {
		cfg.Session.LogPrefix = cfg.Frontend.Kind + "_control"
	}

	// Step 2: Logging. The console owns the terminal, so it logs to file only.
	rotator := setupLogging(cfg.Logging, cfg.Frontend.Kind == "tui")
	if rotator != nil {
		defer func() { _ = rotator.Close() }()
	}
	log.Printf("Starting Tello pilot v%s (frontend=%s, simulate=%v)", Version, cfg.Frontend.Kind, simulate)

	// Step 3: Vehicle link
	remoteAddr, localAddr := cfg.Vehicle.Addr, cfg.Vehicle.LocalAddr
	if simulate {
		vehicle := vehiclesim.NewVehicle(cfg.Simulator.BatteryStart, true)
		defer vehicle.Stop()
		sim := vehiclesim.NewServer(vehicle, vehiclesim.Options{
			Latency:  cfg.Simulator.Latency(),
			DropRate: cfg.Simulator.DropRate,
		})
		if err := sim.Listen("127.0.0.1:0"); err != nil {
			return fmt.Errorf("failed to start simulator: %w", err)
		}
		defer func() { _ = sim.Close() }()
		remoteAddr, localAddr = sim.Addr().String(), "127.0.0.1:0"
		log.Printf("Simulated vehicle listening on %s", remoteAddr)
	}
	transport, err := udp.Dial(localAddr, remoteAddr)
	if err != nil {
		return fmt.Errorf("failed to open vehicle link: %w", err)
	}

	// Step 4: Event hub and audit log
	hub := telemetry.NewHub(cfg.Telemetry.EventBufferSize, cfg.Telemetry.HeartbeatInterval())
	defer hub.Stop()

	auditLogger, err := audit.NewLogger(cfg.Logging)
	if err != nil {
		_ = transport.Close()
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer func() {
		if err := auditLogger.Close(); err != nil {
			log.Printf("Error closing audit logger: %v", err)
		}
	}()

	// Step 5: Session
	ctrl := session.New(transport, cfg, session.WithAuditor(auditLogger), session.WithPublisher(hub))
	hub.SetSnapshotFunc(ctrl.StatusData)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// The session always ends through Shutdown, whatever stopped the group.
	var result session.Result
	g.Go(func() error {
		if err := ctrl.Start(gctx); err != nil {
			log.Printf("Session start interrupted: %v", err)
		}
		select {
		case <-gctx.Done():
		case <-ctrl.Done():
		}
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Session.ShutdownTimeout())
		defer cancel()
		var err error
		result, err = ctrl.Shutdown(sctx)
		return err
	})

	// Step 6: HTTP intent API
	if cfg.API.Enabled {
		server, err := newAPIServer(cfg, ctrl, hub)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			log.Printf("API listening on %s (base /api/v1)", cfg.API.Addr)
			return server.Start()
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-ctrl.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Session.ShutdownTimeout())
			defer cancel()
			hub.Stop()
			return server.Stop(sctx)
		})
	}

	// Step 7: Front-end
	g.Go(func() error {
		return runFrontend(gctx, cfg, ctrl)
	})

	err = g.Wait()
	if result.LogPath != "" {
		log.Printf("Log saved to: %s", result.LogPath)
	}
	if result.LandErr != nil {
		log.Printf("Land during shutdown was not acknowledged: %v", result.LandErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("Tello pilot shutdown complete")
	return nil
}

func runFrontend(ctx context.Context, cfg *config.Config, ctrl *session.Controller) error {
	switch cfg.Frontend.Kind {
	case "tui":
		return tui.Run(ctx, ctrl, cfg.Frontend.HoldRelease())

	case "gamepad":
		device := gamepad.Device{Name: "configured", Path: cfg.Frontend.GamepadDevice}
		if device.Path == "" {
			var err error
			if device, err = gamepad.Discover(gamepad.DevicesFile); err != nil {
				return err
			}
		}
		if err := gamepad.Run(ctx, device, cfg.Frontend.GrabDevice, ctrl); err != nil {
			return err
		}
		if ctx.Err() == nil && !ctrl.Status().ShuttingDown {
			log.Println("Gamepad input ended, shutting down")
			ctrl.OnQuit(audit.WithSource(ctx, "gamepad"))
		}
		return nil
	}

	// http and none are driven from outside; wait for the session or a signal.
	select {
	case <-ctx.Done():
	case <-ctrl.Done():
	}
	return nil
}

func newAPIServer(cfg *config.Config, ctrl *session.Controller, hub *telemetry.Hub) (*api.Server, error) {
	var middleware *auth.Middleware
	if cfg.API.Auth.Algorithm != "" {
		verifier, err := auth.NewVerifier(cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		middleware = auth.NewMiddleware(verifier)
	} else {
		log.Println("API auth disabled, every route is open")
	}
	return api.NewServer(ctrl, hub, middleware, cfg.API), nil
}

// setupLogging tees the standard logger into a size-rotated file.
func setupLogging(cfg config.LoggingConfig, fileOnly bool) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.File == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		log.Printf("Process log disabled: %v", err)
		return nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	if fileOnly {
		log.SetOutput(rotator)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}
	return rotator
}
