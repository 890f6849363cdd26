package dataset

import (
	"fmt"

	"github.com/qualichat/qc-backend/internal/entity"
)

// ResolveMapping binds the configured column mapping to an uploaded
// table. The identifier, date, inspected and rejected columns must
// exist; when the configured defect list is empty, every remaining
// column becomes a defect-type column, keeping the original column
// order.
func ResolveMapping(table *entity.Table, cfg entity.ColumnMapping) (entity.ColumnMapping, error) {
	resolved := entity.ColumnMapping{
		Identifier: NormalizeColumnName(cfg.Identifier),
		Date:       NormalizeColumnName(cfg.Date),
		Inspected:  NormalizeColumnName(cfg.Inspected),
		Rejected:   NormalizeColumnName(cfg.Rejected),
	}

	for _, designated := range []struct {
		role string
		name string
	}{
		{"identifier", resolved.Identifier},
		{"date", resolved.Date},
		{"inspected", resolved.Inspected},
		{"rejected", resolved.Rejected},
	} {
		if designated.name == "" {
			return entity.ColumnMapping{}, fmt.Errorf("%w: no %s column configured",
				entity.ErrMissingColumn, designated.role)
		}
		if !table.HasColumn(designated.name) {
			return entity.ColumnMapping{}, fmt.Errorf("%w: %s column %q",
				entity.ErrMissingColumn, designated.role, designated.name)
		}
	}

	if len(cfg.Defects) > 0 {
		for _, name := range cfg.Defects {
			name = NormalizeColumnName(name)
			if !table.HasColumn(name) {
				return entity.ColumnMapping{}, fmt.Errorf("%w: defect column %q",
					entity.ErrMissingColumn, name)
			}
			resolved.Defects = append(resolved.Defects, name)
		}
		return resolved, nil
	}

	designated := map[string]struct{}{
		resolved.Identifier: {},
		resolved.Date:       {},
		resolved.Inspected:  {},
		resolved.Rejected:   {},
	}
	for _, name := range table.ColumnNames() {
		if _, taken := designated[name]; taken {
			continue
		}
		resolved.Defects = append(resolved.Defects, name)
	}
	if len(resolved.Defects) == 0 {
		return entity.ColumnMapping{}, fmt.Errorf("%w: no defect-type columns", entity.ErrMissingColumn)
	}

	return resolved, nil
}
