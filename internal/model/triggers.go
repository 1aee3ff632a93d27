package model

// Frequency is how often a schedule rule fires.
type Frequency string

const (
	FreqHourly Frequency = "hourly"
	FreqDaily  Frequency = "daily"
	FreqWeekly Frequency = "weekly"
)

// TriggerAction names the pipeline operation a trigger invokes.
type TriggerAction string

const (
	ActionExportAll TriggerAction = "exportAll"
	ActionCopyAll   TriggerAction = "copyAll"
)

// ScheduleRule fires on a recurring schedule. TimeOfDay ("15:04") applies to
// daily and weekly frequencies; Weekday (0=Sunday) to weekly only.
type ScheduleRule struct {
	Frequency Frequency `json:"frequency"`
	TimeOfDay string    `json:"timeOfDay,omitempty"`
	Weekday   int       `json:"weekday,omitempty"`
}

// WatchRule fires on filesystem create/modify events under Directory.
// The triggering path is informational only; every qualifying event invokes
// Action exactly once.
type WatchRule struct {
	Directory string        `json:"directory"`
	Recursive bool          `json:"recursive"`
	Action    TriggerAction `json:"action"`
}
