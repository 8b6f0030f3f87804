package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// ProvisionPackage grants packageCode to the workspace. Granting a package
	// that is already active is a no-op, not a duplicate grant.
	ProvisionPackage(ctx context.Context, req ProvisionRequest) (*Response, error)
	// RevokePackage transitions the active grant to revoked. Revoking a
	// package that is not currently active is a no-op, not an error.
	RevokePackage(ctx context.Context, req RevokeRequest) error
	ActivePackages(ctx context.Context, workspaceID string) ([]Response, error)
}

type ProvisionRequest struct {
	WorkspaceID string `json:"workspace_id"`
	PackageCode string `json:"package_code"`
	Source      string `json:"source"`
}

type RevokeRequest struct {
	WorkspaceID string `json:"workspace_id"`
	PackageCode string `json:"package_code"`
	Source      string `json:"source"`
}

type Response struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	PackageCode string     `json:"package_code"`
	Status      Status     `json:"status"`
	Source      string     `json:"source,omitempty"`
	GrantedAt   time.Time  `json:"granted_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

var (
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidCode      = errors.New("invalid_code")
)
