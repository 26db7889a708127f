package state

import (
	"slices"

	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/snapshot"
)

// ExportSnapshot copies every synced collection into a bundle. The
// timestamp is left for the codec to stamp.
func (s *Store) ExportSnapshot() snapshot.SyncData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := snapshot.SyncData{
		Expenses:          slices.Clone(s.expenses),
		Incomes:           slices.Clone(s.incomes),
		Stores:            slices.Clone(s.stores),
		RecurringExpenses: slices.Clone(s.recurring),
		ShoppingList:      slices.Clone(s.shopping),
		Categories:        slices.Clone(s.categories),
	}
	if s.profile != nil {
		data.FamilyProfile = *s.profile
		data.FamilyProfile.Members = slices.Clone(s.profile.Members)
	}
	return data
}

// ImportSnapshot replaces every synced collection with the bundle. Existing
// data is discarded, so callers must pass confirmed once the user has agreed.
// Imported entities are not mirrored.
func (s *Store) ImportSnapshot(data snapshot.SyncData, confirmed bool) (core.FamilyProfile, error) {
	if !confirmed {
		return core.FamilyProfile{}, ErrConfirmationRequired
	}
	p := data.FamilyProfile
	if p.ID == "" {
		p.ID = LocalProfileID
	}
	p.Members = orEmpty(slices.Clone(p.Members))

	defer s.notify(Change{Op: log.OpImport})
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = orEmpty(slices.Clone(data.Expenses))
	s.incomes = orEmpty(slices.Clone(data.Incomes))
	s.stores = orEmpty(slices.Clone(data.Stores))
	s.recurring = orEmpty(slices.Clone(data.RecurringExpenses))
	s.shopping = orEmpty(slices.Clone(data.ShoppingList))
	s.categories = orEmpty(slices.Clone(data.Categories))
	s.bumpAll()
	s.adoptProfileLocked(p)
	return p, nil
}
