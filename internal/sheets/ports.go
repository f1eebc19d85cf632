package sheets

import (
	"context"

	"contas/internal/core"
)

// Ports for outbound adapters.
type (
	// PayableStore persists the record set: upsert by id, delete by id and
	// select all.
	PayableStore interface {
		ListPayables(ctx context.Context) ([]core.Payable, error)
		UpsertPayables(ctx context.Context, ps ...core.Payable) error
		DeletePayable(ctx context.Context, id int64) error
	}

	// TaxonomyStore persists the taxonomy singleton. found is false when
	// nothing was saved yet.
	TaxonomyStore interface {
		LoadTaxonomy(ctx context.Context) (t core.Taxonomy, found bool, err error)
		SaveTaxonomy(ctx context.Context, t core.Taxonomy) error
	}

	// Store is a backend able to persist both record sets.
	Store interface {
		PayableStore
		TaxonomyStore
	}

	// PayableMirror keeps an external row-per-record copy in sync.
	PayableMirror interface {
		UpsertRow(ctx context.Context, p core.Payable) error
		DeleteRow(ctx context.Context, id int64) error
	}

	// TableReader returns the cells of the first sheet of a spreadsheet.
	TableReader interface {
		ReadTable(ctx context.Context) ([][]string, error)
	}

	// WorkbookWriter renders a workbook to its destination.
	WorkbookWriter interface {
		WriteWorkbook(ctx context.Context, wb Workbook) error
	}
)
