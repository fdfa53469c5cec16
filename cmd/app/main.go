package main

import (
	"flag"
	"log"
	"os"

	"MacroPull/internal/di"
	"MacroPull/pkg/config"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s", cfg.Environment, cfg.Backend.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: schema ready db=%s", cfg.ClickHouse.Database)
	log.Printf("kafka: brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	// Blocks until SIGINT or SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("MACROPULL_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}
