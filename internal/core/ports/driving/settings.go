package driving

import "github.com/custodia-labs/tributary/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// SetCredentials persists workspace credentials.
	SetCredentials(creds domain.WorkspaceCredentials) error

	// SetBaseURL persists the API base URL.
	SetBaseURL(url string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
