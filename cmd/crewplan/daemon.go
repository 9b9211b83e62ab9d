package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewplan/crewplan/internal/audit"
	"github.com/crewplan/crewplan/internal/config"
	"github.com/crewplan/crewplan/internal/controlplane"
	"github.com/crewplan/crewplan/internal/engine"
	"github.com/crewplan/crewplan/internal/store"
)

var (
	listenAddr string
	dbPath     string
	configPath string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Crewplan daemon",
	Long:  `Starts the Crewplan daemon which provides the HTTP API for resource planning.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("Starting Crewplan daemon...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Flags win over the config file
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	recorder := audit.NewRecorder(s)
	service := controlplane.NewService(s, recorder, engineConfig(cfg.Engine))
	server := controlplane.NewServer(service, s, cfg.ListenAddr)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func engineConfig(o config.EngineOverrides) engine.Config {
	cfg := engine.DefaultConfig()
	if o.DefaultWorkStartHour > 0 {
		cfg.DefaultWorkStartHour = o.DefaultWorkStartHour
	}
	if o.DefaultWorkEndHour > 0 {
		cfg.DefaultWorkEndHour = o.DefaultWorkEndHour
	}
	if o.BaseWeeklyHours > 0 {
		cfg.BaseWeeklyHours = o.BaseWeeklyHours
	}
	if o.HeatmapDays > 0 {
		cfg.HeatmapDays = o.HeatmapDays
	}
	if o.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(o.CacheTTLSeconds) * time.Second
	}
	return cfg
}
