package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/debt-snowball/pkg/debt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS debt_sets (
	name          VARCHAR(128) PRIMARY KEY,
	extra_payment DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS debts (
	set_name        VARCHAR(128) NOT NULL REFERENCES debt_sets(name) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	id              TEXT NOT NULL,
	name            TEXT NOT NULL,
	balance         DOUBLE PRECISION NOT NULL,
	rate            DOUBLE PRECISION NOT NULL,
	minimum_payment DOUBLE PRECISION NOT NULL,
	credit_limit    DOUBLE PRECISION,
	notes           TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (set_name, position)
);`

// Postgres is a Repository backed by a PostgreSQL connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// OpenPostgres connects to the database named by dsn and migrates the schema.
func OpenPostgres(ctx context.Context, logger *zap.Logger, dsn string) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse PostgreSQL config: %w", err)
	}
	conf.HealthCheckPeriod = 15 * time.Second
	conf.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("unable to create PostgreSQL connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("connected to PostgreSQL debt store",
		zap.String("op", "store.OpenPostgres"),
		zap.String("host", conf.ConnConfig.Host),
		zap.String("database", conf.ConnConfig.Database),
	)
	return &Postgres{pool: pool, logger: logger, now: time.Now}, nil
}

func (p *Postgres) Save(ctx context.Context, set DebtSet) error {
	set, err := prepare(set, p.now())
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `INSERT INTO debt_sets (name, extra_payment, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET extra_payment = EXCLUDED.extra_payment, updated_at = EXCLUDED.updated_at`,
		set.Name, set.ExtraPayment, set.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving debt set %s: %w", set.Name, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM debts WHERE set_name = $1", set.Name); err != nil {
		return fmt.Errorf("clearing debts of %s: %w", set.Name, err)
	}

	batch := &pgx.Batch{}
	for i, d := range set.Debts {
		batch.Queue(`INSERT INTO debts
			(set_name, position, id, name, balance, rate, minimum_payment, credit_limit, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			set.Name, i, d.ID, d.Name, d.Balance, d.AnnualRatePercent, d.MinimumPayment, d.CreditLimit, d.Notes)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving debts of %s: %w", set.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.logger.Info("saved debt set",
		zap.String("op", "store.Postgres.Save"),
		zap.String("name", set.Name),
		zap.Int("debts", len(set.Debts)),
	)
	return nil
}

func (p *Postgres) Get(ctx context.Context, name string) (*DebtSet, error) {
	set := DebtSet{Name: name}
	err := p.pool.QueryRow(ctx, "SELECT extra_payment, updated_at FROM debt_sets WHERE name = $1", name).
		Scan(&set.ExtraPayment, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	set.UpdatedAt = set.UpdatedAt.UTC()

	rows, err := p.pool.Query(ctx, `SELECT id, name, balance, rate, minimum_payment, credit_limit, notes
		FROM debts WHERE set_name = $1 ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set.Debts = []debt.Debt{}
	for rows.Next() {
		var d debt.Debt
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance, &d.AnnualRatePercent, &d.MinimumPayment, &d.CreditLimit, &d.Notes); err != nil {
			return nil, err
		}
		set.Debts = append(set.Debts, d)
	}
	return &set, rows.Err()
}

func (p *Postgres) List(ctx context.Context) ([]SetInfo, error) {
	rows, err := p.pool.Query(ctx, `SELECT s.name, s.extra_payment, s.updated_at,
			COUNT(d.position), COALESCE(SUM(d.balance), 0)
		FROM debt_sets s LEFT JOIN debts d ON d.set_name = s.name
		GROUP BY s.name, s.extra_payment, s.updated_at
		ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	infos := []SetInfo{}
	for rows.Next() {
		var info SetInfo
		var count int64
		if err := rows.Scan(&info.Name, &info.ExtraPayment, &info.UpdatedAt, &count, &info.TotalBalance); err != nil {
			return nil, err
		}
		info.DebtCount = int(count)
		info.UpdatedAt = info.UpdatedAt.UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, name string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM debt_sets WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
