package domain

import "fmt"

// WorkspaceCredentials identifies and authenticates against one ELT workspace.
// The account ID scopes requests; the key/secret pair is sent as HTTP Basic auth.
type WorkspaceCredentials struct {
	AccountID string
	APIKey    string
	APISecret string
}

// Validate reports which required fields are missing.
func (c WorkspaceCredentials) Validate() error {
	switch {
	case c.AccountID == "":
		return fmt.Errorf("%w: account_id", ErrCredentialsMissing)
	case c.APIKey == "":
		return fmt.Errorf("%w: api_key", ErrCredentialsMissing)
	case c.APISecret == "":
		return fmt.Errorf("%w: api_secret", ErrCredentialsMissing)
	}
	return nil
}

// MaskedKey returns the API key with all but the last four characters hidden.
func (c WorkspaceCredentials) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return "****"
	}
	return "****" + c.APIKey[len(c.APIKey)-4:]
}

// Account is the workspace identity behind a set of credentials.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}
