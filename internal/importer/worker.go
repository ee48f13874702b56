package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Leolion08/ctom-sub000/internal/store"
)

// Worker processes a single import job.
type Worker struct {
	customers *store.CustomerStore
	log       *slog.Logger
}

func NewWorker(customers *store.CustomerStore, log *slog.Logger) *Worker {
	return &Worker{customers: customers, log: log}
}

// Process runs the full import for a job: parse the upload, then create one
// customer record per data row. Row failures are recorded and skipped; the
// job ends partial when some rows land and failed when none do.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusParsing, "parsing")
	rows, err := ParseRecords(job.Filename, job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.SetTotalRows(len(rows.Records))
	log.Info("parsed upload", "rows", len(rows.Records), "columns", len(rows.Headers))

	if len(rows.Records) == 0 {
		job.AddError("upload has no data rows")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	job.SetStatus(StatusImporting, "importing")
	imported := 0
	for i, rec := range rows.Records {
		if ctx.Err() != nil {
			job.AddError("import cancelled")
			break
		}
		if _, err := w.customers.Create(rec); err != nil {
			log.Error("row import failed", "row", i+2, "error", err)
			job.AddError(fmt.Sprintf("row %d: %s", i+2, err))
			continue
		}
		imported++
		job.IncrRowsImported()
	}

	log.Info("import complete", "imported", imported, "total", len(rows.Records))
	switch {
	case imported == 0:
		job.SetStatus(StatusFailed, "importing")
	case imported < len(rows.Records):
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}
