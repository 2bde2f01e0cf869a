package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bharote-backend/api"
	"bharote-backend/service"
)

type Config struct {
	DataDir        string
	Port           int
	WindowDuration time.Duration
	OTPTTL         time.Duration
	CommitRetries  int
	NotifyQueue    int
}

func parseFlags() Config {
	var config Config
	flag.StringVar(&config.DataDir, "data-dir", "ledger_data", "Directory for the database, seed file and admin credentials")
	flag.IntVar(&config.Port, "port", 8080, "HTTP listen port")
	flag.DurationVar(&config.WindowDuration, "window", 24*time.Hour, "Voting window duration")
	flag.DurationVar(&config.OTPTTL, "otp-ttl", 10*time.Minute, "Verification code lifetime")
	flag.IntVar(&config.CommitRetries, "commit-retries", 3, "Max retries for a contended vote commit")
	flag.IntVar(&config.NotifyQueue, "notify-queue", 128, "Notification queue size")
	flag.Parse()
	return config
}

func main() {
	config := parseFlags()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		log.Fatalf("Failed to setup data directory: %v", err)
	}

	votingService, err := service.NewVotingService(service.Config{
		DataDir:         config.DataDir,
		DatabasePath:    filepath.Join(config.DataDir, "ledger.db"),
		SeedFilePath:    filepath.Join(config.DataDir, "reference_data.json"),
		WindowDuration:  config.WindowDuration,
		OTPTTL:          config.OTPTTL,
		CommitRetries:   config.CommitRetries,
		NotifyQueueSize: config.NotifyQueue,
	})
	if err != nil {
		log.Fatalf("Failed to initialize voting service: %v", err)
	}
	defer votingService.Close()

	server := api.NewServer(votingService)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: server.Router(),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %d...", config.Port)
		serverChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		log.Println("Server shutdown completed")
	}
}
