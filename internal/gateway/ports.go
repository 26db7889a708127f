// Package gateway defines the remote store the household state is mirrored
// to. Every entity lives in its own table partitioned by tenant id.
package gateway

import (
	"context"
	"errors"

	"spesacasa/internal/core"
)

// ErrNotFound is returned by Update and Delete for unknown ids.
var ErrNotFound = errors.New("entity not found")

// Table is the CRUD surface for one entity collection.
type Table[T any] interface {
	FetchAll(ctx context.Context, tenantID string) ([]T, error)
	Insert(ctx context.Context, tenantID string, v T) error
	Update(ctx context.Context, id string, v T) error
	Delete(ctx context.Context, id string) error
}

// Profiles stores the tenant records.
type Profiles interface {
	// GetProfile returns nil without error when the tenant does not exist.
	GetProfile(ctx context.Context, tenantID string) (*core.FamilyProfile, error)
	CreateProfile(ctx context.Context, p core.FamilyProfile) error
	UpdateProfile(ctx context.Context, p core.FamilyProfile) error
}

// Gateway bundles the tables of one backend.
type Gateway interface {
	Profiles
	Expenses() Table[core.Expense]
	Incomes() Table[core.Income]
	Stores() Table[core.Store]
	Categories() Table[core.CategoryDefinition]
	Recurring() Table[core.RecurringExpense]
	Shopping() Table[core.ShoppingItem]
	Close() error
}
