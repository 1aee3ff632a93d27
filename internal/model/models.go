package model

// Role scopes connection names; the same name may exist in both roles.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// DriverKind enumerates the supported store drivers.
type DriverKind string

const (
	DriverPostgres DriverKind = "postgres"
	DriverMySQL    DriverKind = "mysql"
	DriverSQLite   DriverKind = "sqlite"
)

// ExistsPolicy controls what happens when the destination table is already populated.
type ExistsPolicy string

const (
	ExistsReplace ExistsPolicy = "replace" // drop and recreate (full refresh)
	ExistsFail    ExistsPolicy = "fail"    // abort with destinationExists
)

// ConnectionDescriptor holds everything needed to open a store.
// Path is only used by the sqlite driver; the network fields by the rest.
type ConnectionDescriptor struct {
	Driver   DriverKind `json:"driver"`
	Host     string     `json:"host,omitempty"`
	Port     int        `json:"port,omitempty"`
	Database string     `json:"database,omitempty"`
	User     string     `json:"user,omitempty"`
	Password string     `json:"password,omitempty"`
	Path     string     `json:"path,omitempty"`
}

// TableSpec identifies a unit of work for copy or export.
// Query, when set, takes precedence over Table+Columns.
type TableSpec struct {
	Table   string   `json:"table"`
	Query   string   `json:"query,omitempty"`
	Columns []string `json:"columns,omitempty"`
	MinRows int64    `json:"minRows,omitempty"` // copy only when source count exceeds this
}

// ConnectionSpec is one named connection in the orchestrator config.
type ConnectionSpec struct {
	Name       string               `json:"name"`
	Role       Role                 `json:"role"`
	Descriptor ConnectionDescriptor `json:"descriptor"`
}

// OrchestratorSpec is the full JSON configuration for a replicator process.
type OrchestratorSpec struct {
	Connections  []ConnectionSpec `json:"connections"`
	Formats      []Format         `json:"formats"`
	OutputDir    string           `json:"outputDir"`
	ExistsPolicy ExistsPolicy     `json:"existsPolicy,omitempty"`
	Exclude      []string         `json:"exclude,omitempty"`
	BatchSize    int              `json:"batchSize,omitempty"` // advisory insert batch size
	Schedules    []ScheduleRule   `json:"schedules,omitempty"`
	Watches      []WatchRule      `json:"watches,omitempty"`
	TrackingDB   string           `json:"trackingDb,omitempty"`
}
