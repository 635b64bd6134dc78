package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// Ensure WorkspaceService implements the interface.
var _ driving.WorkspaceService = (*WorkspaceService)(nil)

// WorkspaceService verifies workspace credentials.
type WorkspaceService struct {
	elt       driven.ELTService
	accountID string
}

// NewWorkspaceService creates a workspace service for the configured account.
func NewWorkspaceService(elt driven.ELTService, accountID string) *WorkspaceService {
	return &WorkspaceService{elt: elt, accountID: accountID}
}

// Verify fetches the account behind the credentials. Credentials that
// authenticate but belong to another account fail with domain.ErrAuth.
func (s *WorkspaceService) Verify(ctx context.Context) (*domain.Account, error) {
	account, err := s.elt.AccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	if s.accountID != "" && account.AccountID != "" && account.AccountID != s.accountID {
		return nil, fmt.Errorf("%w: credentials belong to account %s, not %s",
			domain.ErrAuth, account.AccountID, s.accountID)
	}
	return account, nil
}
