package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/config"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/logger"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/server"
)

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	logger.Init(c.Log)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		slog.Error("Init server failed", "error", err)
		os.Exit(1)
	}

	go s.Start()

	<-shutdown
	s.Shutdown()
}

// loadConfig reads CONFIG_PATH when set. Without it the configuration comes from the defaults
// and the environment.
func loadConfig() (server.Config, error) {
	c := server.DefaultConfig()

	if err := config.Load(os.Getenv("CONFIG_PATH"), &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}
