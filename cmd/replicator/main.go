package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-db-replicator/internal/config"
	"go-db-replicator/internal/model"
	"go-db-replicator/internal/pipeline"
	"go-db-replicator/internal/registry"
	"go-db-replicator/internal/store"
	"go-db-replicator/internal/trigger"
)

func main() {
	configPath := flag.String("config", "replicator.json", "path to the orchestrator config")
	seed := flag.Bool("seed", false, "seed demo tables into every sqlite source and exit")
	flag.Parse()

	spec, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if spec.TrackingDB != "" {
		if err := store.InitTracking(spec.TrackingDB); err != nil {
			fmt.Printf("❌ Tracking DB init failed: %v\n", err)
			os.Exit(1)
		}
		defer store.CloseTracking()
	}

	reg := registry.New()
	defer reg.Close()

	for _, c := range spec.Connections {
		sc, err := reg.Register(ctx, c.Name, c.Role, c.Descriptor)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		if db, ok := sc.Conn.(*store.DB); ok && spec.BatchSize > 0 {
			db.BatchSize = spec.BatchSize
		}
	}

	if *seed {
		if err := seedSources(ctx, reg, spec.Connections); err != nil {
			fmt.Printf("❌ Seed failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := pipeline.New(reg, spec.OutputDir, spec.ExistsPolicy)
	orch := trigger.NewOrchestrator(p,
		reg.Names(model.RoleSource), reg.Names(model.RoleDestination),
		spec.Formats, config.ExcludeSet(spec))

	for _, rule := range spec.Schedules {
		if err := orch.AddSchedule(rule); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	}
	for _, rule := range spec.Watches {
		if err := orch.AddWatch(rule); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	}

	if err := orch.Start(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("🚀 Replicator running with %d schedule(s) and %d watch(es)\n",
		len(spec.Schedules), len(spec.Watches))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("🛑 Shutting down...")
	orch.Stop()
}

// seedSources loads the demo fixture into each sqlite source store.
func seedSources(ctx context.Context, reg *registry.Registry, conns []model.ConnectionSpec) error {
	for _, c := range conns {
		if c.Role != model.RoleSource || c.Descriptor.Driver != model.DriverSQLite {
			continue
		}
		sc, err := reg.Get(c.Name, model.RoleSource)
		if err != nil {
			return err
		}
		db, ok := sc.Conn.(*store.DB)
		if !ok {
			continue
		}
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", c.Name, err)
		}
		fmt.Printf("🌱 Seeded demo tables into %s\n", c.Name)
	}
	return nil
}
