// Package storage is the SQLite gateway. Domain field names are translated
// to snake_case columns here and amounts are stored as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"spesacasa/internal/core"
	"spesacasa/internal/gateway"
	"spesacasa/internal/log"
)

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface{ Scan(...any) error }

// table maps one entity onto one SQL table. cols excludes id and
// family_id; values must return one argument per col.
type table[T interface{ EntityID() string }] struct {
	db     *sql.DB
	name   string
	cols   []string
	order  string
	scan   func(scanner) (T, error)
	values func(T) []any
}

func (t *table[T]) FetchAll(ctx context.Context, tenantID string) ([]T, error) {
	q := `SELECT id, ` + strings.Join(t.cols, ", ") + ` FROM ` + t.name + ` WHERE family_id = ? ORDER BY ` + t.order
	rows, err := t.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		v, err := t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (t *table[T]) Insert(ctx context.Context, tenantID string, v T) error {
	cols := append([]string{"id", "family_id"}, t.cols...)
	args := append([]any{v.EntityID(), tenantID}, t.values(v)...)
	q := `INSERT INTO ` + t.name + ` (` + strings.Join(cols, ", ") + `) VALUES (` + placeholders(len(cols)) + `)`
	if _, err := t.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

func (t *table[T]) Update(ctx context.Context, id string, v T) error {
	sets := make([]string, len(t.cols))
	for i, c := range t.cols {
		sets[i] = c + " = ?"
	}
	args := append(t.values(v), id)
	res, err := t.db.ExecContext(ctx, `UPDATE `+t.name+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.name, err)
	}
	return requireRow(res)
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Gateway stores every household collection in one SQLite file.
type Gateway struct {
	db  *sql.DB
	log *slog.Logger

	expenses   *table[core.Expense]
	incomes    *table[core.Income]
	stores     *table[core.Store]
	categories *table[core.CategoryDefinition]
	recurring  *table[core.RecurringExpense]
	shopping   *table[core.ShoppingItem]
}

var _ gateway.Gateway = (*Gateway)(nil)

// Open creates the database directory if needed, migrates the schema and
// returns a ready gateway.
func Open(dbPath string, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	g := &Gateway{db: db, log: log.WithComponent(logger, log.ComponentStorage)}
	g.expenses = &table[core.Expense]{
		db: db, name: "expenses", order: "date DESC, rowid DESC",
		cols:   []string{"product", "quantity", "unit_price_cents", "total_cents", "store", "date", "category", "member_id"},
		scan:   scanExpense,
		values: expenseValues,
	}
	g.incomes = &table[core.Income]{
		db: db, name: "incomes", order: "date DESC, rowid DESC",
		cols:   []string{"source", "amount_cents", "date"},
		scan:   scanIncome,
		values: func(in core.Income) []any { return []any{in.Source, in.Amount.Cents, formatTime(in.Date)} },
	}
	g.stores = &table[core.Store]{
		db: db, name: "stores", order: "rowid DESC",
		cols: []string{"name"},
		scan: func(s scanner) (core.Store, error) {
			var st core.Store
			err := s.Scan(&st.ID, &st.Name)
			return st, err
		},
		values: func(st core.Store) []any { return []any{st.Name} },
	}
	g.categories = &table[core.CategoryDefinition]{
		db: db, name: "categories", order: "rowid DESC",
		cols: []string{"name", "icon", "color"},
		scan: func(s scanner) (core.CategoryDefinition, error) {
			var c core.CategoryDefinition
			err := s.Scan(&c.ID, &c.Name, &c.Icon, &c.Color)
			return c, err
		},
		values: func(c core.CategoryDefinition) []any { return []any{c.Name, string(c.Icon), string(c.Color)} },
	}
	g.recurring = &table[core.RecurringExpense]{
		db: db, name: "recurring_expenses", order: "next_due_date ASC, rowid DESC",
		cols:   []string{"product", "amount_cents", "store", "frequency", "next_due_date", "reminder_days"},
		scan:   scanRecurring,
		values: recurringValues,
	}
	g.shopping = &table[core.ShoppingItem]{
		db: db, name: "shopping_items", order: "rowid DESC",
		cols: []string{"product", "store", "completed"},
		scan: func(s scanner) (core.ShoppingItem, error) {
			var it core.ShoppingItem
			var completed int
			err := s.Scan(&it.ID, &it.Product, &it.Store, &completed)
			it.Completed = completed != 0
			return it, err
		},
		values: func(it core.ShoppingItem) []any { return []any{it.Product, it.Store, boolInt(it.Completed)} },
	}

	g.log.Info("SQLite gateway ready", "path", dbPath)
	return g, nil
}

func (g *Gateway) Expenses() gateway.Table[core.Expense]              { return g.expenses }
func (g *Gateway) Incomes() gateway.Table[core.Income]                { return g.incomes }
func (g *Gateway) Stores() gateway.Table[core.Store]                  { return g.stores }
func (g *Gateway) Categories() gateway.Table[core.CategoryDefinition] { return g.categories }
func (g *Gateway) Recurring() gateway.Table[core.RecurringExpense]    { return g.recurring }
func (g *Gateway) Shopping() gateway.Table[core.ShoppingItem]         { return g.shopping }

func (g *Gateway) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

func (g *Gateway) GetProfile(ctx context.Context, tenantID string) (*core.FamilyProfile, error) {
	var p core.FamilyProfile
	row := g.db.QueryRowContext(ctx, `SELECT id, family_name, google_sheet_url FROM family_profiles WHERE id = ?`, tenantID)
	if err := row.Scan(&p.ID, &p.FamilyName, &p.GoogleSheetURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	rows, err := g.db.QueryContext(ctx, `SELECT id, name, color, user_id, is_admin FROM family_members WHERE family_id = ? ORDER BY position ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	p.Members = []core.Member{}
	for rows.Next() {
		var m core.Member
		var admin int
		if err := rows.Scan(&m.ID, &m.Name, &m.Color, &m.UserID, &admin); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.IsAdmin = admin != 0
		p.Members = append(p.Members, m)
	}
	return &p, rows.Err()
}

func (g *Gateway) CreateProfile(ctx context.Context, p core.FamilyProfile) error {
	return g.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO family_profiles (id, family_name, google_sheet_url) VALUES (?, ?, ?)`,
			p.ID, p.FamilyName, p.GoogleSheetURL); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		return insertMembers(ctx, tx, p)
	})
}

// UpdateProfile rewrites the profile row and its member list.
func (g *Gateway) UpdateProfile(ctx context.Context, p core.FamilyProfile) error {
	return g.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE family_profiles SET family_name = ?, google_sheet_url = ? WHERE id = ?`,
			p.FamilyName, p.GoogleSheetURL, p.ID)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM family_members WHERE family_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear members: %w", err)
		}
		return insertMembers(ctx, tx, p)
	})
}

func insertMembers(ctx context.Context, tx *sql.Tx, p core.FamilyProfile) error {
	for i, m := range p.Members {
		if m.ID == "" {
			m.ID = core.NewID()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO family_members (id, family_id, name, color, user_id, is_admin, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, p.ID, m.Name, m.Color, m.UserID, boolInt(m.IsAdmin), i); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return nil
}

func (g *Gateway) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e         core.Expense
		unitPrice int64
		total     int64
		date      string
	)
	if err := s.Scan(&e.ID, &e.Product, &e.Quantity, &unitPrice, &total, &e.Store, &date, &e.Category, &e.MemberID); err != nil {
		return core.Expense{}, err
	}
	t, err := time.Parse(timeLayout, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	e.Date = t.UTC()
	e.UnitPrice = core.Cents(unitPrice)
	e.Total = core.Cents(total)
	return e, nil
}

func expenseValues(e core.Expense) []any {
	return []any{e.Product, e.Quantity, e.UnitPrice.Cents, e.Total.Cents, e.Store, formatTime(e.Date), e.Category, e.MemberID}
}

func scanIncome(s scanner) (core.Income, error) {
	var (
		in     core.Income
		amount int64
		date   string
	)
	if err := s.Scan(&in.ID, &in.Source, &amount, &date); err != nil {
		return core.Income{}, err
	}
	t, err := time.Parse(timeLayout, date)
	if err != nil {
		return core.Income{}, fmt.Errorf("parse income date %q: %w", date, err)
	}
	in.Date = t.UTC()
	in.Amount = core.Cents(amount)
	return in, nil
}

func scanRecurring(s scanner) (core.RecurringExpense, error) {
	var (
		r      core.RecurringExpense
		amount int64
		freq   string
		due    string
	)
	if err := s.Scan(&r.ID, &r.Product, &amount, &r.Store, &freq, &due, &r.ReminderDays); err != nil {
		return core.RecurringExpense{}, err
	}
	d, err := core.ParseDate(due)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse next due date %q: %w", due, err)
	}
	r.Amount = core.Cents(amount)
	r.Frequency = core.Frequency(freq)
	r.NextDueDate = d
	return r, nil
}

func recurringValues(r core.RecurringExpense) []any {
	return []any{r.Product, r.Amount.Cents, r.Store, string(r.Frequency), r.NextDueDate.String(), r.ReminderDays}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
