package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tributary/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tributary/internal/core/domain"
)

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Sync, settings.Sync)
	assert.Equal(t, defaults.Client, settings.Client)
	assert.Equal(t, domain.DefaultBaseURL, settings.Workspace.BaseURL)
	assert.Empty(t, settings.Workspace.Credentials.AccountID)
	assert.True(t, settings.Scheduler.Enabled)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("workspace.account_id", "acc-1")
	_ = store.Set("workspace.api_key", "key")
	_ = store.Set("workspace.api_secret", "secret")
	_ = store.Set("workspace.base_url", "http://localhost:9000")
	_ = store.Set("sync.poll_interval", "5s")
	_ = store.Set("sync.timeout", int64(120))
	_ = store.Set("sync.parallelism", 8)
	_ = store.Set("client.max_retries", 0)
	_ = store.Set("client.requests_per_second", 2.5)

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.WorkspaceCredentials{AccountID: "acc-1", APIKey: "key", APISecret: "secret"},
		settings.Workspace.Credentials)
	assert.Equal(t, "http://localhost:9000", settings.Workspace.BaseURL)
	assert.Equal(t, 5*time.Second, settings.Sync.PollInterval)
	assert.Equal(t, 2*time.Minute, settings.Sync.Timeout)
	assert.Equal(t, 8, settings.Sync.Parallelism)
	assert.Equal(t, 0, settings.Client.MaxRetries, "an explicit zero disables retries")
	assert.InDelta(t, 2.5, settings.Client.RequestsPerSecond, 0.001)
}

func TestSettingsService_Get_EnvironmentOverrides(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("workspace.account_id", "from-file")
	_ = store.Set("workspace.api_key", "file-key")
	t.Setenv(EnvAccountID, "from-env")
	t.Setenv(EnvAPISecret, "env-secret")
	t.Setenv(EnvBaseURL, "http://twin")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, "from-env", settings.Workspace.Credentials.AccountID)
	assert.Equal(t, "file-key", settings.Workspace.Credentials.APIKey)
	assert.Equal(t, "env-secret", settings.Workspace.Credentials.APISecret)
	assert.Equal(t, "http://twin", settings.Workspace.BaseURL)
}

func TestSettingsService_Get_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"zero poll interval", "sync.poll_interval", "0s"},
		{"negative timeout", "sync.timeout", "-1m"},
		{"negative retries", "client.max_retries", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			_ = store.Set(tt.key, tt.value)

			_, err := NewSettingsService(store).Get()

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Get_UnparsableValuesUseDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.poll_interval", "soon")
	_ = store.Set("client.requests_per_second", "fast")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Sync.PollInterval, settings.Sync.PollInterval)
	assert.InDelta(t, defaults.Client.RequestsPerSecond, settings.Client.RequestsPerSecond, 0.001)
}

func TestSettingsService_SetCredentials(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	err := service.SetCredentials(domain.WorkspaceCredentials{AccountID: "acc", APIKey: "k", APISecret: "s"})

	require.NoError(t, err)
	assert.Equal(t, "acc", store.GetString("workspace.account_id"))
	assert.Equal(t, "k", store.GetString("workspace.api_key"))
	assert.Equal(t, "s", store.GetString("workspace.api_secret"))
}

func TestSettingsService_SetCredentials_Incomplete(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	err := service.SetCredentials(domain.WorkspaceCredentials{AccountID: "acc", APIKey: "k"})

	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
	_, exists := store.Get("workspace.account_id")
	assert.False(t, exists, "nothing is saved when validation fails")
}

func TestSettingsService_SetBaseURL(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	require.NoError(t, service.SetBaseURL(" https://eu.example.com/ "))
	assert.Equal(t, "https://eu.example.com", store.GetString("workspace.base_url"))

	err := service.SetBaseURL("ftp://example.com")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, service.SetBaseURL(""))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBaseURL, settings.Workspace.BaseURL)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("scheduler.enabled", false)
	_ = store.Set("scheduler.connector_sync.interval", "30m")
	_ = store.Set("scheduler.connector_sync.cron", "0 * * * *")
	_ = store.Set("scheduler.catalog_refresh.enabled", false)
	_ = store.Set("scheduler.catalog_refresh.interval", "not-a-duration")

	config := NewSettingsService(store).GetSchedulerConfig()

	assert.False(t, config.Enabled)
	syncCfg := config.GetTaskConfig(domain.TaskIDConnectorSync)
	assert.True(t, syncCfg.Enabled)
	assert.Equal(t, 30*time.Minute, syncCfg.Interval)
	assert.Equal(t, "0 * * * *", syncCfg.Cron)

	refreshCfg := config.GetTaskConfig(domain.TaskIDCatalogRefresh)
	assert.False(t, refreshCfg.Enabled)
	assert.Equal(t, time.Hour, refreshCfg.Interval, "invalid intervals keep the default")
}
