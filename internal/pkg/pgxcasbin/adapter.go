// Package pgxcasbin persists casbin policies in postgres through pgx.
//
// Rules live in one table with columns (ptype, v0..v5); see migrations for
// the DDL. The adapter supports incremental saves and filtered loading.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
	"go.uber.org/atomic"
)

const (
	// DefaultTableName is used when WithTableName is not given.
	DefaultTableName = "casbin_rules"

	fieldCount = 6
)

var (
	// ErrInvalidFilter is returned by LoadFilteredPolicy for unsupported filters.
	ErrInvalidFilter = errors.New("pgxcasbin: filter must be Filter")
	// ErrRuleTooLong is returned when a rule has more than six fields.
	ErrRuleTooLong = errors.New("pgxcasbin: rule exceeds six fields")
	// ErrEmptyPtype is returned when a filtered removal has no policy type.
	ErrEmptyPtype = errors.New("pgxcasbin: ptype is required")
)

// DB is the subset of pgxpool.Pool the adapter needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Filter selects rules by policy type, then by leading field values. Empty
// values match anything. Multiple entries for a ptype are OR-ed.
type Filter map[string][][]string

// Adapter implements casbin persistence over pgx.
type Adapter struct {
	db       DB
	table    string
	filtered *atomic.Bool
}

var (
	_ persist.Adapter         = (*Adapter)(nil)
	_ persist.BatchAdapter    = (*Adapter)(nil)
	_ persist.FilteredAdapter = (*Adapter)(nil)
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithTableName overrides DefaultTableName. The name is snake-cased.
func WithTableName(name string) Option {
	return func(a *Adapter) { a.table = lo.SnakeCase(name) }
}

// NewAdapter returns an adapter over db.
func NewAdapter(db DB, opts ...Option) *Adapter {
	a := &Adapter{db: db, table: DefaultTableName, filtered: atomic.NewBool(false)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LoadPolicy loads every rule into m.
func (a *Adapter) LoadPolicy(m model.Model) error {
	ctx := context.Background()
	a.filtered.Store(false)

	lines, err := a.selectRules(ctx, "", nil)
	if err != nil {
		return err
	}
	return loadLines(m, lines)
}

// LoadFilteredPolicy loads only rules matching filter, which must be a Filter
// or nil (load everything).
func (a *Adapter) LoadFilteredPolicy(m model.Model, filter any) error {
	if lo.IsNil(filter) {
		return a.LoadPolicy(m)
	}

	f, ok := filter.(Filter)
	if !ok {
		return fmt.Errorf("%w, got %T", ErrInvalidFilter, filter)
	}

	ctx := context.Background()
	var lines [][]string
	for ptype, conditions := range f {
		if len(conditions) == 0 {
			conditions = [][]string{nil}
		}
		for _, values := range conditions {
			rows, err := a.selectRules(ctx, ptype, values)
			if err != nil {
				return err
			}
			lines = append(lines, rows...)
		}
	}

	a.filtered.Store(true)
	lines = lo.UniqBy(lines, func(line []string) string { return strings.Join(line, ",") })
	return loadLines(m, lines)
}

// IsFiltered reports whether the last load was filtered; casbin refuses to
// SavePolicy over a filtered model.
func (a *Adapter) IsFiltered() bool {
	return a.filtered.Load()
}

// SavePolicy replaces the table contents with m in one transaction.
func (a *Adapter) SavePolicy(m model.Model) (err error) {
	ctx := context.Background()

	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgxcasbin: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreClosed(tx.Rollback(ctx)))
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM "+a.table); err != nil {
		return fmt.Errorf("pgxcasbin: clear: %w", err)
	}

	batch := &pgx.Batch{}
	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				args, qerr := ruleArgs(ptype, rule)
				if qerr != nil {
					return qerr
				}
				batch.Queue(a.insertSQL(), args...)
			}
		}
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pgxcasbin: insert: %w", err)
	}

	return tx.Commit(ctx)
}

// AddPolicy inserts one rule; duplicates are ignored.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	return a.AddPolicies("", ptype, [][]string{rule})
}

// AddPolicies inserts rules in one round trip.
func (a *Adapter) AddPolicies(_ string, ptype string, rules [][]string) error {
	return a.execEach(a.insertSQL(), ptype, rules)
}

// RemovePolicy deletes one exact rule.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	return a.RemovePolicies("", ptype, [][]string{rule})
}

// RemovePolicies deletes exact rules in one round trip.
func (a *Adapter) RemovePolicies(_ string, ptype string, rules [][]string) error {
	return a.execEach(a.deleteExactSQL(), ptype, rules)
}

// RemoveFilteredPolicy deletes rules of ptype whose fields starting at
// fieldIndex equal fieldValues; empty values match anything.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if fieldIndex+len(fieldValues) > fieldCount {
		return ErrRuleTooLong
	}

	where, args := conditions(ptype, fieldIndex, fieldValues)
	_, err := a.db.Exec(context.Background(), "DELETE FROM "+a.table+" WHERE "+where, args...)
	if err != nil {
		return fmt.Errorf("pgxcasbin: delete filtered: %w", err)
	}
	return nil
}

func (a *Adapter) execEach(sql, ptype string, rules [][]string) (err error) {
	if len(rules) == 0 {
		return nil
	}

	ctx := context.Background()
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgxcasbin: begin: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, ignoreClosed(tx.Rollback(ctx)))
		}
	}()

	batch := &pgx.Batch{}
	for _, rule := range rules {
		args, qerr := ruleArgs(ptype, rule)
		if qerr != nil {
			return qerr
		}
		batch.Queue(sql, args...)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pgxcasbin: batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (a *Adapter) selectRules(ctx context.Context, ptype string, values []string) ([][]string, error) {
	if len(values) > fieldCount {
		return nil, ErrRuleTooLong
	}

	sql := "SELECT ptype, " + columns() + " FROM " + a.table
	if ptype != "" {
		where, args := conditions(ptype, 0, values)
		rows, err := a.db.Query(ctx, sql+" WHERE "+where+" ORDER BY id", args...)
		if err != nil {
			return nil, fmt.Errorf("pgxcasbin: select: %w", err)
		}
		return collectLines(rows)
	}

	rows, err := a.db.Query(ctx, sql+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("pgxcasbin: select: %w", err)
	}
	return collectLines(rows)
}

func (a *Adapter) insertSQL() string {
	placeholders := lo.Times(fieldCount+1, func(i int) string { return fmt.Sprintf("$%d", i+1) })
	return "INSERT INTO " + a.table + " (ptype, " + columns() + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT DO NOTHING"
}

func (a *Adapter) deleteExactSQL() string {
	where := lo.Times(fieldCount, func(i int) string { return fmt.Sprintf("v%d = $%d", i, i+2) })
	return "DELETE FROM " + a.table + " WHERE ptype = $1 AND " + strings.Join(where, " AND ")
}

func columns() string {
	return strings.Join(lo.Times(fieldCount, func(i int) string { return fmt.Sprintf("v%d", i) }), ", ")
}

func conditions(ptype string, fieldIndex int, values []string) (string, []any) {
	where := []string{"ptype = $1"}
	args := []any{ptype}
	for i, v := range values {
		if v == "" {
			continue
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("v%d = $%d", fieldIndex+i, len(args)))
	}
	return strings.Join(where, " AND "), args
}

func ruleArgs(ptype string, rule []string) ([]any, error) {
	if len(rule) > fieldCount {
		return nil, ErrRuleTooLong
	}
	padded := make([]string, fieldCount)
	copy(padded, rule)
	return append([]any{ptype}, lo.ToAnySlice(padded)...), nil
}

func collectLines(rows pgx.Rows) ([][]string, error) {
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]string, error) {
		line := make([]string, fieldCount+1)
		dest := make([]any, len(line))
		for i := range line {
			dest[i] = &line[i]
		}
		if err := row.Scan(dest...); err != nil {
			return nil, err
		}
		return trimTrailingEmpty(line), nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgxcasbin: scan: %w", err)
	}
	return lines, nil
}

func loadLines(m model.Model, lines [][]string) error {
	for _, line := range lines {
		if err := persist.LoadPolicyArray(line, m); err != nil {
			return err
		}
	}
	return nil
}

func trimTrailingEmpty(line []string) []string {
	last := len(line)
	for last > 0 && line[last-1] == "" {
		last--
	}
	return line[:last]
}

func ignoreClosed(err error) error {
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
