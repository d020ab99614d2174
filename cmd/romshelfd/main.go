package main

import (
	"context"
	"flag"
	"log"

	"romshelf/internal/config"
	"romshelf/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	scanOnStart := flag.Bool("scan", false, "Scan the library once the API is listening")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{ScanOnStart: *scanOnStart}); err != nil {
		log.Fatalf("romshelfd: %v", err)
	}
}
