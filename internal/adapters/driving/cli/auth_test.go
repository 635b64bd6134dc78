package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

func stubPrompt(t *testing.T, secret string) *int {
	t.Helper()
	calls := 0
	old := promptSecret
	promptSecret = func(*cobra.Command, string) string {
		calls++
		return secret
	}
	t.Cleanup(func() { promptSecret = old })
	return &calls
}

func TestAuthSet_WithFlags(t *testing.T) {
	settings := &mockSettings{}
	withServices(t, &Services{Settings: settings})
	prompts := stubPrompt(t, "unused")

	out, err := executeCommand(t, "auth", "set",
		"--account-id", " acc_123 ", "--api-key", "key_abcd1234", "--api-secret", "s3cret")

	require.NoError(t, err)
	require.NotNil(t, settings.creds)
	assert.Equal(t, domain.WorkspaceCredentials{
		AccountID: "acc_123", APIKey: "key_abcd1234", APISecret: "s3cret",
	}, *settings.creds)
	assert.Nil(t, settings.baseURL, "base URL untouched without the flag")
	assert.Zero(t, *prompts)
	assert.Contains(t, out, "Credentials saved for account acc_123 (key ****1234).")
}

func TestAuthSet_PromptsForSecret(t *testing.T) {
	settings := &mockSettings{}
	withServices(t, &Services{Settings: settings})
	prompts := stubPrompt(t, "prompted")

	_, err := executeCommand(t, "auth", "set", "--account-id", "acc_1", "--api-key", "key_1")

	require.NoError(t, err)
	assert.Equal(t, 1, *prompts)
	assert.Equal(t, "prompted", settings.creds.APISecret)
}

func TestAuthSet_BaseURL(t *testing.T) {
	settings := &mockSettings{}
	withServices(t, &Services{Settings: settings})
	stubPrompt(t, "s")

	_, err := executeCommand(t, "auth", "set",
		"--account-id", "acc_1", "--api-key", "key_1", "--base-url", "http://localhost:8080")

	require.NoError(t, err)
	require.NotNil(t, settings.baseURL)
	assert.Equal(t, "http://localhost:8080", *settings.baseURL)
}

func TestAuthSet_MissingFields(t *testing.T) {
	withServices(t, &Services{Settings: &mockSettings{}})
	stubPrompt(t, "")

	_, err := executeCommand(t, "auth", "set", "--account-id", "acc_1")

	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

func TestAuthCheck(t *testing.T) {
	withServices(t, &Services{Workspace: &mockWorkspace{
		account: &domain.Account{AccountID: "acc_123", AccountName: "Acme"},
	}})

	out, err := executeCommand(t, "auth", "check")

	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated against account acc_123 (Acme).")
}

func TestAuthCheck_UnnamedAccount(t *testing.T) {
	withServices(t, &Services{Workspace: &mockWorkspace{account: &domain.Account{AccountID: "acc_1"}}})

	out, err := executeCommand(t, "auth", "check")

	require.NoError(t, err)
	assert.Contains(t, out, "(unnamed)")
}

func TestAuthCheck_Rejected(t *testing.T) {
	withServices(t, &Services{Workspace: &mockWorkspace{err: domain.ErrAuth}})

	_, err := executeCommand(t, "auth", "check")

	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Contains(t, err.Error(), "credential check failed")
}

func TestAuthCheck_NotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := executeCommand(t, "auth", "check")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tributary auth set")
}
