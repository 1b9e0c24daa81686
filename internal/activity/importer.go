package activity

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ImportStore is the storage surface the import pipeline needs. *Store
// satisfies it; tests substitute their own.
type ImportStore interface {
	Exists(ctx context.Context, description, person, date string) (bool, error)
	Insert(ctx context.Context, a *Activity) error
}

// Importer persists batches of candidate activities, skipping duplicates by
// natural key and reporting per-row outcomes.
type Importer struct {
	store ImportStore
}

// NewImporter creates an importer backed by the given store.
func NewImporter(store ImportStore) *Importer {
	return &Importer{store: store}
}

// ProgressFunc receives the number of rows processed so far and the report
// accumulated up to that point.
type ProgressFunc func(done int, report *ImportReport)

// Import processes records sequentially in input order. Each row runs its
// existence check against storage before the next row starts, so a row
// committed at position 2 is visible to the duplicate check at position 5.
// Row-level failures are captured in the report and never abort the batch;
// the returned error is reserved for a broken context. An optional progress
// callback is invoked after each row.
func (imp *Importer) Import(ctx context.Context, records []Activity, onProgress ...ProgressFunc) (*ImportReport, error) {
	report := &ImportReport{Total: len(records), Messages: []string{}}
	notify := func(done int) {
		for _, fn := range onProgress {
			if fn != nil {
				fn(done, report)
			}
		}
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rowNum := i + 1

		imp.importRow(ctx, rowNum, rec, report)
		notify(rowNum)
	}

	log.Printf("[Import] processed %d rows: %d inserted, %d duplicates, %d invalid, %d errors",
		report.Total, report.Inserted, report.Duplicates, report.Invalid, report.Errors)
	return report, nil
}

func (imp *Importer) importRow(ctx context.Context, rowNum int, rec Activity, report *ImportReport) {
	if rec.Description == "" || rec.AssignedPerson == "" {
		report.Invalid++
		report.Messages = append(report.Messages,
			fmt.Sprintf("Row %d: missing required fields", rowNum))
		return
	}

	exists, err := imp.store.Exists(ctx, rec.Description, rec.AssignedPerson, rec.Date)
	if err != nil {
		report.Errors++
		report.Messages = append(report.Messages,
			fmt.Sprintf("Row %d: %v", rowNum, err))
		log.Printf("[Import] row %d lookup failed: %v", rowNum, err)
		return
	}
	if exists {
		report.Duplicates++
		report.Messages = append(report.Messages,
			fmt.Sprintf("Row %d: duplicate record", rowNum))
		return
	}

	a := rec
	if err := imp.store.Insert(ctx, &a); err != nil {
		// A concurrent import can win the race between our existence
		// check and the insert; the unique index turns that into
		// ErrDuplicate, which is a duplicate outcome, not a failure.
		if errors.Is(err, ErrDuplicate) {
			report.Duplicates++
			report.Messages = append(report.Messages,
				fmt.Sprintf("Row %d: duplicate record", rowNum))
			return
		}
		report.Errors++
		report.Messages = append(report.Messages,
			fmt.Sprintf("Row %d: %v", rowNum, err))
		log.Printf("[Import] row %d insert failed: %v", rowNum, err)
		return
	}
	report.Inserted++
}
