package main

import (
	"context"
	"log"

	"reel/internal/daemonrun"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, runOptions(cfg)); err != nil {
		log.Fatalf("run daemon: %v", err)
	}
}
