package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/debt-snowball/pkg/debt"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // register sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS debt_sets (
	name          TEXT PRIMARY KEY,
	extra_payment REAL NOT NULL DEFAULT 0,
	updated_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS debts (
	set_name        TEXT NOT NULL REFERENCES debt_sets(name) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	id              TEXT NOT NULL,
	name            TEXT NOT NULL,
	balance         REAL NOT NULL,
	rate            REAL NOT NULL,
	minimum_payment REAL NOT NULL,
	credit_limit    REAL,
	notes           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (set_name, position)
);`

// SQLite is a Repository backed by a local SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, logger *zap.Logger, path string) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return nil, errors.New("sqlite storage requires a dsn path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("opened sqlite debt store",
		zap.String("op", "store.OpenSQLite"),
		zap.String("path", path),
	)
	return &SQLite{db: db, logger: logger, now: time.Now}, nil
}

func (s *SQLite) Save(ctx context.Context, set DebtSet) error {
	set, err := prepare(set, s.now())
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO debt_sets (name, extra_payment, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET extra_payment = excluded.extra_payment, updated_at = excluded.updated_at`,
		set.Name, set.ExtraPayment, set.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving debt set %s: %w", set.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM debts WHERE set_name = ?", set.Name); err != nil {
		return fmt.Errorf("clearing debts of %s: %w", set.Name, err)
	}
	for i, d := range set.Debts {
		_, err = tx.ExecContext(ctx, `INSERT INTO debts
			(set_name, position, id, name, balance, rate, minimum_payment, credit_limit, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			set.Name, i, d.ID, d.Name, d.Balance, d.AnnualRatePercent, d.MinimumPayment, nullFloat(d.CreditLimit), d.Notes)
		if err != nil {
			return fmt.Errorf("saving debt %s: %w", d.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("saved debt set",
		zap.String("op", "store.SQLite.Save"),
		zap.String("name", set.Name),
		zap.Int("debts", len(set.Debts)),
	)
	return nil
}

func (s *SQLite) Get(ctx context.Context, name string) (*DebtSet, error) {
	set := DebtSet{Name: name}
	var updated string
	err := s.db.QueryRowContext(ctx, "SELECT extra_payment, updated_at FROM debt_sets WHERE name = ?", name).
		Scan(&set.ExtraPayment, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if set.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at of %s: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, balance, rate, minimum_payment, credit_limit, notes
		FROM debts WHERE set_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	set.Debts = []debt.Debt{}
	for rows.Next() {
		var d debt.Debt
		var limit sql.NullFloat64
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance, &d.AnnualRatePercent, &d.MinimumPayment, &limit, &d.Notes); err != nil {
			return nil, err
		}
		if limit.Valid {
			v := limit.Float64
			d.CreditLimit = &v
		}
		set.Debts = append(set.Debts, d)
	}
	return &set, rows.Err()
}

func (s *SQLite) List(ctx context.Context) ([]SetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT s.name, s.extra_payment, s.updated_at,
			COUNT(d.position), COALESCE(SUM(d.balance), 0)
		FROM debt_sets s LEFT JOIN debts d ON d.set_name = s.name
		GROUP BY s.name, s.extra_payment, s.updated_at
		ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	infos := []SetInfo{}
	for rows.Next() {
		var info SetInfo
		var updated string
		if err := rows.Scan(&info.Name, &info.ExtraPayment, &updated, &info.DebtCount, &info.TotalBalance); err != nil {
			return nil, err
		}
		if info.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, fmt.Errorf("parsing updated_at of %s: %w", info.Name, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM debt_sets WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
