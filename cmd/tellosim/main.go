// Package main runs a standalone Tello text SDK simulator on UDP so the pilot
// can be flown without hardware.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/barbamx/tello-drone-pilot/internal/config"
	"github.com/barbamx/tello-drone-pilot/internal/vehiclesim"
)

func main() {
	var (
		configPath string
		listenAddr string
		lenient    bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "YAML config file (simulator section)")
	pflag.StringVarP(&listenAddr, "listen", "l", "", "UDP address to answer on (default from config)")
	pflag.BoolVar(&lenient, "lenient", false, "accept commands before the handshake and moves while grounded")
	pflag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Tello simulator...")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if listenAddr == "" {
		listenAddr = cfg.Simulator.ListenAddr
	}

	vehicle := vehiclesim.NewVehicle(cfg.Simulator.BatteryStart, !lenient)
	server := vehiclesim.NewServer(vehicle, vehiclesim.Options{
		Latency:  cfg.Simulator.Latency(),
		DropRate: cfg.Simulator.DropRate,
	})
	if err := server.Listen(listenAddr); err != nil {
		log.Fatalf("Simulator failed: %v", err)
	}
	log.Printf("Simulator answering on %s (latency %s, drop rate %.2f)",
		server.Addr(), cfg.Simulator.Latency(), cfg.Simulator.DropRate)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down simulator...")
	if err := server.Close(); err != nil {
		log.Printf("Simulator shutdown error: %v", err)
	}
	vehicle.Stop()
	log.Printf("Final vehicle state: %+v", vehicle.Snapshot())
}
