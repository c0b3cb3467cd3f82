package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/strataconf/strata/internal/core/domain"
	"github.com/strataconf/strata/internal/core/ports/driven"
	"github.com/strataconf/strata/internal/logger"
)

// Migrator copies every namespace's data from one backend to another.
// The source is read only; the target receives the rows through the
// driver's import path, which falls back to per-record writes when a
// bulk write fails.
type Migrator struct {
	source   driven.ConfigDriver
	target   driven.ConfigDriver
	registry domain.CategoryRegistry
}

// MigrationReport summarizes one migration run.
type MigrationReport struct {
	RunID      string
	Namespaces int
	Categories int
	Started    time.Time
	Finished   time.Time
}

// NewMigrator creates a migrator between two open drivers.
func NewMigrator(source, target driven.ConfigDriver, registry domain.CategoryRegistry) *Migrator {
	if registry == nil {
		registry = domain.BuiltinCategories()
	}
	return &Migrator{source: source, target: target, registry: registry}
}

// Run copies all data from source to target and returns a report. The
// run stops on the first namespace-level failure; data already written
// to the target is left in place.
func (m *Migrator) Run(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	logger.Info("migration %s starting", report.RunID)

	for ns, err := range m.source.Namespaces(ctx) {
		if err != nil {
			return report, fmt.Errorf("listing namespaces: %w", err)
		}
		count, err := m.migrateNamespace(ctx, ns)
		if err != nil {
			return report, fmt.Errorf("migrating %s: %w", ns.Name, err)
		}
		report.Namespaces++
		report.Categories += count
	}

	report.Finished = time.Now()
	logger.Info("migration %s finished: %d namespaces, %d categories",
		report.RunID, report.Namespaces, report.Categories)
	return report, nil
}

func (m *Migrator) migrateNamespace(ctx context.Context, ns domain.Namespace) (int, error) {
	store, err := NewStore(m.source, ns.Name,
		WithInstanceID(ns.InstanceID),
		WithRegistry(m.registry))
	if err != nil {
		return 0, err
	}
	rows, err := store.Export(ctx)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		logger.Debug("namespace %s/%s has no data, skipping", ns.Name, ns.InstanceID)
		return 0, nil
	}
	if err := m.target.ImportData(ctx, ns, rows, m.registry); err != nil {
		return 0, err
	}
	logger.Debug("migrated %s/%s: %d categories", ns.Name, ns.InstanceID, len(rows))
	return len(rows), nil
}
