package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tesseradb/tessera"
	"github.com/tesseradb/tessera/core"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "TCP address to listen on (overrides config)")
	baseDir := flag.String("baseDir", "", "Base directory for persistence (overrides config)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Tessera SQL Server v%s\n", Version)
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *baseDir != "" {
		cfg.BaseDir = *baseDir
	}

	var instance *tessera.Instance
	var err error
	if cfg.BaseDir == "" {
		log.Println("Using memory persistence")
		instance, err = tessera.OpenMemory()
	} else {
		log.Printf("Using file persistence: %s", cfg.BaseDir)
		instance, err = tessera.OpenFile(cfg.BaseDir)
	}
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}

	identity := core.Identity{
		Name:  cfg.Identity.Name,
		Email: cfg.Identity.Email,
	}

	server := NewServer(instance, identity, cfg.Auth)
	if err := server.Start(cfg.Listen); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   Tessera SQL Server v%-15s  ║\n", Version)
	fmt.Println("║   Git-backed SQL Database Engine      ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on %s\n", server.Addr())
	fmt.Println("Send SQL statements (one per line), 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Server stopped")
}
