package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go-db-replicator/internal/api"
	"go-db-replicator/internal/api/handler"
	"go-db-replicator/internal/config"
	"go-db-replicator/internal/model"
	"go-db-replicator/internal/pipeline"
	"go-db-replicator/internal/registry"
	"go-db-replicator/internal/store"
	"go-db-replicator/internal/trigger"
	"go-db-replicator/pkg/router"
)

// @title DB Replicator API
// @version 1.0
// @description Control API for the trigger-driven table replication and export orchestrator
// @host localhost:8080
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "replicator.json", "path to the orchestrator config")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	spec, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	trackingDB := spec.TrackingDB
	if trackingDB == "" {
		trackingDB = "replicator.db"
	}
	if err := store.InitTracking(trackingDB); err != nil {
		fmt.Printf("❌ Tracking DB init failed: %v\n", err)
		os.Exit(1)
	}
	defer store.CloseTracking()

	reg := registry.New()
	defer reg.Close()

	for _, c := range spec.Connections {
		if _, err := reg.Register(ctx, c.Name, c.Role, c.Descriptor); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	}

	p := pipeline.New(reg, spec.OutputDir, spec.ExistsPolicy)
	orch := trigger.NewOrchestrator(p,
		reg.Names(model.RoleSource), reg.Names(model.RoleDestination),
		spec.Formats, config.ExcludeSet(spec))

	h := &handler.Handler{Orch: orch}

	r := router.New()
	api.RegisterRoutes(r, h)
	r.Start(*addr)
}
