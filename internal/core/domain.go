package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	// FamilyProfile is the tenant record. Its ID partitions every other entity.
	FamilyProfile struct {
		ID             string   `json:"id"`
		FamilyName     string   `json:"familyName"`
		Members        []Member `json:"members"`
		GoogleSheetURL string   `json:"googleSheetUrl,omitempty"`
	}

	Member struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Color   string `json:"color"`
		UserID  string `json:"userId,omitempty"`
		IsAdmin bool   `json:"isAdmin"`
	}

	Expense struct {
		ID        string    `json:"id"`
		Product   string    `json:"product"`
		Quantity  float64   `json:"quantity"`
		UnitPrice Money     `json:"unitPrice"`
		Total     Money     `json:"total"`
		Store     string    `json:"store"`
		Date      time.Time `json:"date"`
		Category  string    `json:"category"`
		MemberID  string    `json:"memberId,omitempty"`
	}

	Income struct {
		ID     string    `json:"id"`
		Source string    `json:"source"`
		Amount Money     `json:"amount"`
		Date   time.Time `json:"date"`
	}

	Store struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	ShoppingItem struct {
		ID        string `json:"id"`
		Product   string `json:"product"`
		Store     string `json:"store"`
		Completed bool   `json:"completed"`
	}

	// OfferPreferences never leave the device.
	OfferPreferences struct {
		City                    string   `json:"city"`
		SelectedStores          []string `json:"selectedStores"`
		LastCheckDate           int64    `json:"lastCheckDate"` // epoch ms
		HasEnabledNotifications bool     `json:"hasEnabledNotifications"`
	}
)

var (
	ErrEmptyProduct     = errors.New("empty product")
	ErrEmptyStore       = errors.New("empty store")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyFamilyName  = errors.New("empty family name")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidReminder  = errors.New("reminder days must be zero or positive")
	ErrProductTooLong   = errors.New("product too long (max 200 characters)")
	ErrInvalidIcon      = errors.New("unknown category icon")
	ErrInvalidColor     = errors.New("unknown category color")
)

// NewID returns a random identifier for a new entity.
func NewID() string {
	return uuid.NewString()
}

// EntityID methods let generic gateways key any collection.
func (e Expense) EntityID() string            { return e.ID }
func (i Income) EntityID() string             { return i.ID }
func (s Store) EntityID() string              { return s.ID }
func (c CategoryDefinition) EntityID() string { return c.ID }
func (r RecurringExpense) EntityID() string   { return r.ID }
func (s ShoppingItem) EntityID() string       { return s.ID }

// Normalize fills whichever of total and unit price can be derived from the
// other. Entry forms accept a total alone.
func (e *Expense) Normalize() {
	e.Product = strings.TrimSpace(e.Product)
	e.Store = strings.TrimSpace(e.Store)
	e.Category = strings.TrimSpace(e.Category)
	if e.Quantity == 0 {
		e.Quantity = 1
	}
	switch {
	case e.Total.IsZero() && !e.UnitPrice.IsZero():
		e.Total = e.UnitPrice.Times(e.Quantity)
	case e.UnitPrice.IsZero() && !e.Total.IsZero() && e.Quantity > 0:
		e.UnitPrice = e.Total.Div(e.Quantity)
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Product) == "" {
		return ErrEmptyProduct
	}
	if len(e.Product) > 200 {
		return ErrProductTooLong
	}
	if strings.TrimSpace(e.Store) == "" {
		return ErrEmptyStore
	}
	if e.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if err := e.Total.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if i.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (s ShoppingItem) Validate() error {
	if strings.TrimSpace(s.Product) == "" {
		return ErrEmptyProduct
	}
	return nil
}

func (p FamilyProfile) Validate() error {
	if strings.TrimSpace(p.FamilyName) == "" {
		return ErrEmptyFamilyName
	}
	for _, m := range p.Members {
		if strings.TrimSpace(m.Name) == "" {
			return ErrEmptyName
		}
	}
	return nil
}

// SameName reports whether two store or category names refer to the same thing.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
