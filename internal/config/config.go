package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"go-db-replicator/internal/model"
)

// Load reads the orchestrator configuration from a JSON file. A .env file
// in the working directory is loaded first so ${VAR} references in the
// config can resolve local credentials.
func Load(path string) (*model.OrchestratorSpec, error) {
	// .env is optional
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.Expand(string(raw), func(key string) string {
		return os.Getenv(key)
	})

	var spec model.OrchestratorSpec
	if err := json.Unmarshal([]byte(expanded), &spec); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(&spec)
	if err := validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func applyDefaults(spec *model.OrchestratorSpec) {
	if spec.OutputDir == "" {
		spec.OutputDir = "output"
	}
	if len(spec.Formats) == 0 {
		spec.Formats = []model.Format{model.FormatCSV}
	}
	if spec.ExistsPolicy == "" {
		spec.ExistsPolicy = model.ExistsFail
	}
}

func validate(spec *model.OrchestratorSpec) error {
	if len(spec.Connections) == 0 {
		return fmt.Errorf("config: at least one connection is required")
	}
	for _, c := range spec.Connections {
		if c.Name == "" {
			return fmt.Errorf("config: connection with empty name")
		}
		switch c.Role {
		case model.RoleSource, model.RoleDestination:
		default:
			return fmt.Errorf("config: connection %s: unknown role %q", c.Name, c.Role)
		}
		switch c.Descriptor.Driver {
		case model.DriverPostgres, model.DriverMySQL, model.DriverSQLite:
		default:
			return fmt.Errorf("config: connection %s: unknown driver %q", c.Name, c.Descriptor.Driver)
		}
	}
	for _, f := range spec.Formats {
		switch f {
		case model.FormatCSV, model.FormatParquet, model.FormatAvro:
		default:
			return fmt.Errorf("config: unknown format %q", f)
		}
	}
	for _, w := range spec.Watches {
		if w.Directory == "" {
			return fmt.Errorf("config: watch rule with empty directory")
		}
		switch w.Action {
		case model.ActionExportAll, model.ActionCopyAll:
		default:
			return fmt.Errorf("config: watch on %s: unknown action %q", w.Directory, w.Action)
		}
	}
	for _, s := range spec.Schedules {
		switch s.Frequency {
		case model.FreqHourly, model.FreqDaily, model.FreqWeekly:
		default:
			return fmt.Errorf("config: schedule with unknown frequency %q", s.Frequency)
		}
	}
	return nil
}

// ExcludeSet turns the exclude list into a lookup set.
func ExcludeSet(spec *model.OrchestratorSpec) map[string]bool {
	out := map[string]bool{}
	for _, t := range spec.Exclude {
		out[t] = true
	}
	return out
}
