package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"contas/internal/backup"
	"contas/internal/core"
	ports "contas/internal/sheets"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000Z"

const taxonomyRowID = 1

var _ ports.Store = (*Repository)(nil)

// Repository persists payables, the taxonomy and the mirror sync queue in
// SQLite or Postgres.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(DialectSQLite, dbPath)
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return Open(DialectPostgres, dsn)
}

// Open connects with the given dialect and runs the migrations.
func Open(dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	return &Repository{db: db, dialect: dialect, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Dialect reports the SQL flavour in use.
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// rebind turns ? placeholders into $n for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const payableColumns = `id, description, group_dre, subgroup, cta, person_supplier, due_date, amount,
	payment_method, bank, obs, expense_type, recurring, payment_date, payment_method_used,
	payment_obs, created_at, updated_at`

const upsertPayable = `INSERT INTO payables (` + payableColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	description = excluded.description,
	group_dre = excluded.group_dre,
	subgroup = excluded.subgroup,
	cta = excluded.cta,
	person_supplier = excluded.person_supplier,
	due_date = excluded.due_date,
	amount = excluded.amount,
	payment_method = excluded.payment_method,
	bank = excluded.bank,
	obs = excluded.obs,
	expense_type = excluded.expense_type,
	recurring = excluded.recurring,
	payment_date = excluded.payment_date,
	payment_method_used = excluded.payment_method_used,
	payment_obs = excluded.payment_obs,
	updated_at = excluded.updated_at`

// ListPayables returns every payable ordered by due date.
func (r *Repository) ListPayables(ctx context.Context) ([]core.Payable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+payableColumns+` FROM payables ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	defer rows.Close()

	var out []core.Payable
	for rows.Next() {
		p, err := scanPayable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	return out, nil
}

// GetPayable returns one payable or a NotFoundError.
func (r *Repository) GetPayable(ctx context.Context, id int64) (core.Payable, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+payableColumns+` FROM payables WHERE id = ?`), id)
	p, err := scanPayable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payable{}, &core.NotFoundError{Kind: "payable", Key: strconv.FormatInt(id, 10)}
	}
	return p, err
}

// UpsertPayables writes ps in one transaction and queues each for the
// mirror.
func (r *Repository) UpsertPayables(ctx context.Context, ps ...core.Payable) error {
	if len(ps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, r.rebind(upsertPayable))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	for _, p := range ps {
		_, err := upsert.ExecContext(ctx,
			p.ID, p.Description, p.GroupName, p.SubgroupName, p.CostCenterCode, p.PersonOrSupplier,
			nullIfEmpty(p.DueDate), p.Amount, p.PaymentMethod, p.Bank, p.Notes,
			backup.StoredExpenseType(p.ExpenseType), backup.StoredRecurring(p.IsRecurring),
			nullIfEmpty(p.PaymentDate), p.PaymentMethodUsed, p.PaymentNotes,
			formatTS(p.CreatedAt), formatTS(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("upsert payable %d: %w", p.ID, err)
		}
		if err := r.enqueue(ctx, tx, p.ID, OpUpsert); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.DebugContext(ctx, "Payables saved", "count", len(ps), "dialect", r.dialect)
	return nil
}

// DeletePayable removes the payable and queues the deletion for the mirror.
// Deleting a missing id is not an error.
func (r *Repository) DeletePayable(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM payables WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete payable %d: %w", id, err)
	}
	if err := r.enqueue(ctx, tx, id, OpDelete); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadTaxonomy reads the singleton taxonomy row.
func (r *Repository) LoadTaxonomy(ctx context.Context) (core.Taxonomy, bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT config FROM dre_config WHERE id = ?`), taxonomyRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load taxonomy: %w", err)
	}
	tax, err := core.DecodeTaxonomy(raw)
	if err != nil {
		return nil, false, fmt.Errorf("decode stored taxonomy: %w", err)
	}
	return tax, true, nil
}

// SaveTaxonomy upserts the singleton taxonomy row.
func (r *Repository) SaveTaxonomy(ctx context.Context, t core.Taxonomy) error {
	data, err := json.Marshal(t.Normalize())
	if err != nil {
		return fmt.Errorf("encode taxonomy: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.rebind(`INSERT INTO dre_config (id, config, updated_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`),
		taxonomyRowID, string(data), formatTS(r.now()))
	if err != nil {
		return fmt.Errorf("save taxonomy: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayable(s scanner) (core.Payable, error) {
	var (
		p                    core.Payable
		dueDate, paymentDate sql.NullString
		expenseType          string
		recurring            string
		createdAt, updatedAt string
	)
	err := s.Scan(&p.ID, &p.Description, &p.GroupName, &p.SubgroupName, &p.CostCenterCode,
		&p.PersonOrSupplier, &dueDate, &p.Amount, &p.PaymentMethod, &p.Bank, &p.Notes,
		&expenseType, &recurring, &paymentDate, &p.PaymentMethodUsed, &p.PaymentNotes,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan payable: %w", err)
	}
	p.DueDate = dueDate.String
	p.PaymentDate = paymentDate.String
	p.ExpenseType = backup.ParseExpenseType(expenseType)
	p.IsRecurring = backup.ParseRecurring(recurring)
	p.CreatedAt = parseTS(createdAt)
	p.UpdatedAt = parseTS(updatedAt)
	return p, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	for _, layout := range []string{tsLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
