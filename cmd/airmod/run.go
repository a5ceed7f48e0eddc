// cmd/airmod/run.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ventio/airmod/internal/config"
	"github.com/ventio/airmod/internal/coordinator"
	"github.com/ventio/airmod/internal/mqtt"
	"github.com/ventio/airmod/internal/registers"
	"github.com/ventio/airmod/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan once, then poll on an interval",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := registers.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// MQTT (optional)
	// --------------------

	var pub *mqtt.Publisher
	if m := cfg.Airmod.MQTT; m != nil {
		pub = mqtt.New(mqtt.Options{
			Broker:    m.Broker,
			ClientID:  m.ClientID,
			Username:  m.Username,
			Password:  m.Password,
			BaseTopic: m.BaseTopic,
			QoS:       m.QoS,
			Retain:    m.Retain,
		}, log.Default())
		if err := pub.Connect(ctx); err != nil {
			return err
		}
		defer pub.Close()
	}

	// --------------------
	// Per-unit pipelines
	// --------------------

	for _, unit := range cfg.Airmod.Units {
		logger := log.New(os.Stderr, unit.ID+" ", log.LstdFlags)

		client, err := transport.Dial(unit.Transport())
		if err != nil {
			return fmt.Errorf("transport dial failed (unit=%s): %w", unit.ID, err)
		}
		defer client.Close()

		coord, err := coordinator.New(unit.Coordinator(), client, catalog, logger)
		if err != nil {
			return fmt.Errorf("coordinator build failed (unit=%s): %w", unit.ID, err)
		}
		coord.SetClassifier(unit.Classifier())

		go func() {
			if err := coord.Run(ctx); err != nil {
				logger.Printf("coordinator stopped: %v", err)
			}
		}()

		if pub != nil {
			go publishLoop(ctx, pub, unit, catalog, coord, logger)
		}
	}

	<-ctx.Done()
	return nil
}

// publishLoop mirrors the coordinator's snapshot to the broker at the unit's
// poll interval, offset slightly so a cycle has finished first.
func publishLoop(ctx context.Context, pub *mqtt.Publisher, unit config.UnitConfig, catalog *registers.Catalog, coord *coordinator.Coordinator, logger *log.Logger) {
	interval := time.Duration(unit.Poll.IntervalMs) * time.Millisecond

	select {
	case <-ctx.Done():
		return
	case <-time.After(interval / 2):
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := pub.PublishView(unit.ID, catalog, coord.View()); err != nil {
			logger.Printf("mqtt publish failed: %v", err)
		}
		if err := pub.PublishDiagnostics(unit.ID, coord.Diagnostics()); err != nil {
			logger.Printf("mqtt diagnostics publish failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
