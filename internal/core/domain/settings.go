package domain

import "time"

// DefaultBaseURL is the public REST endpoint of the ELT service.
const DefaultBaseURL = "https://api.fivetran.com"

// AppSettings holds all persisted application settings.
type AppSettings struct {
	Workspace WorkspaceSettings
	Sync      SyncSettings
	Client    ClientSettings
	Scheduler SchedulerConfig
}

// WorkspaceSettings identifies the remote workspace.
type WorkspaceSettings struct {
	Credentials WorkspaceCredentials
	BaseURL     string
}

// SyncSettings controls the sync executor.
type SyncSettings struct {
	// PollInterval is the delay between status requests.
	PollInterval time.Duration

	// Timeout bounds how long a run may poll before it fails.
	Timeout time.Duration

	// Parallelism caps concurrent runs of distinct connectors.
	Parallelism int
}

// ClientSettings controls the workspace client.
type ClientSettings struct {
	// MaxRetries is the retry budget for transient errors.
	MaxRetries int

	// RequestsPerSecond is the proactive throttle rate.
	RequestsPerSecond float64
}

// DefaultAppSettings returns the settings used when nothing is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Workspace: WorkspaceSettings{BaseURL: DefaultBaseURL},
		Sync: SyncSettings{
			PollInterval: 10 * time.Second,
			Timeout:      30 * time.Minute,
			Parallelism:  4,
		},
		Client: ClientSettings{
			MaxRetries:        3,
			RequestsPerSecond: 5,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}
