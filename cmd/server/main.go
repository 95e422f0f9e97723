package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"droneMissionControl/internal/broker"
	"droneMissionControl/internal/config"
	"droneMissionControl/internal/db"
	"droneMissionControl/internal/dispatch"
	"droneMissionControl/internal/ingest"
	"droneMissionControl/internal/mission"
	"droneMissionControl/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg)

	// Open DB
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			log.Printf("close db: %v", err)
		}
	}()

	missions := repository.NewMissionRepository(d)
	records := repository.NewRecordRepository(d)
	telemetry := repository.NewTelemetryRepository(d)

	// Connect to the bus
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := broker.EnsureTopics(bootCtx, cfg, 3, 1); err != nil {
		log.Printf("ensure topics: %v (continuing; topics may be managed externally)", err)
	}
	bootCancel()

	bus := broker.NewKafkaClient(cfg)
	defer bus.Close()

	dispatcher := dispatch.NewDispatcher(bus)
	orchestrator := mission.NewService(missions, records, dispatcher)

	// Recover missions persisted before a crash prevented their publish.
	recoverCtx, recoverCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := orchestrator.RedispatchInProgress(recoverCtx); err != nil {
		log.Printf("redispatch in-progress missions: %v", err)
	}
	recoverCancel()

	// Start the telemetry consumer
	processor := ingest.NewProcessor(telemetry, orchestrator, cfg.Ingest.ProcessTimeout)
	coordinator := ingest.NewCoordinator(processor, bus, cfg.Ingest.MaxRetries, cfg.Ingest.BaseBackoff)
	consumer := ingest.NewConsumer(bus, coordinator, cfg.Ingest.Workers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	log.Printf("telemetry consumer running (topic=%s group=%s)", cfg.Kafka.TelemetryTopic, cfg.Kafka.GroupID)

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		log.Printf("shutdown signal received")
		cancel()
		select {
		case err := <-done:
			if err != nil {
				log.Printf("consumer stopped: %v", err)
			}
		case <-time.After(10 * time.Second):
			log.Printf("consumer did not stop in time")
		}
	case err := <-done:
		cancel()
		log.Fatalf("consumer exited: %v", err)
	}
}
