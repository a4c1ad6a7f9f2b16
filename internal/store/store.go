// Package store persists named debt sets so a portfolio can be saved once and
// planned against repeatedly.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/debt-snowball/internal/config"
	"github.com/iwvelando/debt-snowball/pkg/debt"
	"go.uber.org/zap"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrNotFound is returned when a named debt set does not exist.
	ErrNotFound = errors.New("debt set not found")
	// ErrDisabled is returned by Open when no storage driver is configured.
	ErrDisabled = errors.New("storage is not configured")
	// ErrInvalidSet is wrapped by every error Save returns for a set that
	// fails validation.
	ErrInvalidSet = errors.New("invalid debt set")
	// ErrInvalidName is returned for empty or oversized set names.
	ErrInvalidName = errors.New("debt set name must be 1-128 characters")
)

// DebtSet is a named, saved portfolio.
type DebtSet struct {
	Name         string      `json:"name"`
	ExtraPayment float64     `json:"extraPayment"`
	Debts        []debt.Debt `json:"debts"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// SetInfo describes a saved set without its debts.
type SetInfo struct {
	Name         string    `json:"name"`
	ExtraPayment float64   `json:"extraPayment"`
	DebtCount    int       `json:"debtCount"`
	TotalBalance float64   `json:"totalBalance"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Repository stores debt sets.
type Repository interface {
	// Save creates or replaces the set with the same name.
	Save(ctx context.Context, set DebtSet) error
	Get(ctx context.Context, name string) (*DebtSet, error)
	// List returns every set ordered by name.
	List(ctx context.Context) ([]SetInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open connects to the repository selected by cfg and creates its schema.
func Open(ctx context.Context, logger *zap.Logger, cfg config.StorageConfig) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Driver) {
	case "":
		return nil, ErrDisabled
	case DriverSQLite:
		return OpenSQLite(ctx, logger, cfg.DSN)
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgres(ctx, logger, cfg.DSN)
	}
	return nil, fmt.Errorf("unknown storage driver %q: expected %s or %s", cfg.Driver, DriverSQLite, DriverPostgres)
}

// prepare validates a set before it is written and stamps its update time.
func prepare(set DebtSet, now time.Time) (DebtSet, error) {
	if err := checkName(set.Name); err != nil {
		return set, fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	if set.ExtraPayment < 0 {
		return set, fmt.Errorf("%w: extra payment must not be negative, got %.2f", ErrInvalidSet, set.ExtraPayment)
	}
	set.Debts = debt.WithDefaultIDs(set.Debts)
	if err := debt.ValidateSet(set.Debts); err != nil {
		return set, fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	set.UpdatedAt = now.UTC().Truncate(time.Second)
	return set, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > 128 {
		return ErrInvalidName
	}
	return nil
}
