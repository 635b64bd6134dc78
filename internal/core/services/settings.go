package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAccountID         = "workspace.account_id"
	keyAPIKey            = "workspace.api_key"
	keyAPISecret         = "workspace.api_secret"
	keyBaseURL           = "workspace.base_url"
	keyPollInterval      = "sync.poll_interval"
	keySyncTimeout       = "sync.timeout"
	keyParallelism       = "sync.parallelism"
	keyMaxRetries        = "client.max_retries"
	keyRequestsPerSecond = "client.requests_per_second"
	keySchedulerEnabled  = "scheduler.enabled"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvAccountID = "TRIBUTARY_ACCOUNT_ID"
	EnvAPIKey    = "TRIBUTARY_API_KEY"
	EnvAPISecret = "TRIBUTARY_API_SECRET"
	EnvBaseURL   = "TRIBUTARY_BASE_URL"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Environment variables take
// precedence over the config file for workspace identity.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Workspace: domain.WorkspaceSettings{
			Credentials: domain.WorkspaceCredentials{
				AccountID: s.getEnvOr(EnvAccountID, keyAccountID),
				APIKey:    s.getEnvOr(EnvAPIKey, keyAPIKey),
				APISecret: s.getEnvOr(EnvAPISecret, keyAPISecret),
			},
			BaseURL: s.getEnvOr(EnvBaseURL, keyBaseURL),
		},
		Sync: domain.SyncSettings{
			PollInterval: s.getDuration(keyPollInterval, defaults.Sync.PollInterval),
			Timeout:      s.getDuration(keySyncTimeout, defaults.Sync.Timeout),
			Parallelism:  s.getInt(keyParallelism, defaults.Sync.Parallelism),
		},
		Client: domain.ClientSettings{
			MaxRetries:        s.getInt(keyMaxRetries, defaults.Client.MaxRetries),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.Client.RequestsPerSecond),
		},
		Scheduler: s.GetSchedulerConfig(),
	}
	if settings.Workspace.BaseURL == "" {
		settings.Workspace.BaseURL = defaults.Workspace.BaseURL
	}

	if settings.Sync.PollInterval <= 0 || settings.Sync.Timeout <= 0 {
		return nil, fmt.Errorf("%w: sync durations must be positive", domain.ErrInvalidInput)
	}
	if settings.Client.MaxRetries < 0 {
		return nil, fmt.Errorf("%w: client.max_retries must not be negative", domain.ErrInvalidInput)
	}

	return settings, nil
}

// SetCredentials persists workspace credentials. All three fields are required.
func (s *SettingsService) SetCredentials(creds domain.WorkspaceCredentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := s.configStore.Set(keyAccountID, creds.AccountID); err != nil {
		return fmt.Errorf("save account id: %w", err)
	}
	if err := s.configStore.Set(keyAPIKey, creds.APIKey); err != nil {
		return fmt.Errorf("save api key: %w", err)
	}
	if err := s.configStore.Set(keyAPISecret, creds.APISecret); err != nil {
		return fmt.Errorf("save api secret: %w", err)
	}
	return nil
}

// SetBaseURL persists the API base URL. An empty URL restores the default.
func (s *SettingsService) SetBaseURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return s.configStore.Delete(keyBaseURL)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: base url must start with http:// or https://", domain.ErrInvalidInput)
	}
	return s.configStore.Set(keyBaseURL, strings.TrimRight(url, "/"))
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		defaults.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	// Map from task ID to config key (underscore version for TOML)
	taskKeys := map[string]string{
		domain.TaskIDConnectorSync:  "connector_sync",
		domain.TaskIDCatalogRefresh: "catalog_refresh",
	}

	for taskID, configKey := range taskKeys {
		prefix := "scheduler." + configKey + "."
		taskCfg := defaults.TaskConfigs[taskID]

		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}
		if interval := s.configStore.GetString(prefix + "interval"); interval != "" {
			if d, err := time.ParseDuration(interval); err == nil && d > 0 {
				taskCfg.Interval = d
			}
		}
		if cron := s.configStore.GetString(prefix + "cron"); cron != "" {
			taskCfg.Cron = cron
		}

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getEnvOr(env, key string) string {
	if val := strings.TrimSpace(os.Getenv(env)); val != "" {
		return val
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getDuration accepts a duration string ("45s") or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int64, int, float64:
		if secs := s.configStore.GetFloat(key); secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultVal
}
