// Package snapshot encodes the whole household bundle into a single text
// token that survives copy and paste through chat apps, and decodes it back.
package snapshot

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spesacasa/internal/core"
)

// SyncData is the exportable bundle. Timestamp is epoch milliseconds.
type SyncData struct {
	Expenses          []core.Expense            `json:"expenses"`
	Incomes           []core.Income             `json:"incomes"`
	Stores            []core.Store              `json:"stores"`
	RecurringExpenses []core.RecurringExpense   `json:"recurringExpenses"`
	ShoppingList      []core.ShoppingItem       `json:"shoppingList"`
	FamilyProfile     core.FamilyProfile        `json:"familyProfile"`
	Categories        []core.CategoryDefinition `json:"categories"`
	Timestamp         int64                     `json:"timestamp"`
}

var requiredKeys = []string{"expenses", "familyProfile"}

// DecodeError rejects a token that is not a valid bundle.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid snapshot: %s: %v", e.Reason, e.Err)
	}
	return "invalid snapshot: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec converts bundles to tokens. The zero value uses time.Now.
type Codec struct {
	Now func() time.Time
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Encode stamps the bundle and returns the base64 of its UTF-8 JSON. Nil
// collections are written as empty arrays.
func (c Codec) Encode(data SyncData) (string, error) {
	data.Timestamp = c.now().UnixMilli()
	data.normalize()
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a token produced by Encode or by older clients.
func (c Codec) Decode(token string) (SyncData, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(token), ""))
	if err != nil {
		return SyncData{}, &DecodeError{Reason: "not base64", Err: err}
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return SyncData{}, &DecodeError{Reason: "not a JSON object", Err: err}
	}
	for _, k := range requiredKeys {
		v, ok := keys[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return SyncData{}, &DecodeError{Reason: "missing " + k}
		}
	}

	var data SyncData
	if err := json.Unmarshal(raw, &data); err != nil {
		return SyncData{}, &DecodeError{Reason: "malformed bundle", Err: err}
	}
	return data, nil
}

func (d *SyncData) normalize() {
	d.Expenses = orEmpty(d.Expenses)
	d.Incomes = orEmpty(d.Incomes)
	d.Stores = orEmpty(d.Stores)
	d.RecurringExpenses = orEmpty(d.RecurringExpenses)
	d.ShoppingList = orEmpty(d.ShoppingList)
	d.Categories = orEmpty(d.Categories)
	d.FamilyProfile.Members = orEmpty(d.FamilyProfile.Members)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
