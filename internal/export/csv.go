package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"time"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/fileutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/gocarina/gocsv"
)

// csvRecord is one line of an exported CSV file.
type csvRecord struct {
	Date         string `csv:"date"`
	Amount       string `csv:"amount"`
	Currency     string `csv:"currency"`
	Category     string `csv:"category"`
	Label        string `csv:"label"`
	Description  string `csv:"description"`
	Counterparty string `csv:"counterparty"`
	Remittance   string `csv:"remittance"`
	Source       string `csv:"source"`
	Identity     string `csv:"identity"`
}

// CSVExporter writes income and expenses to two timestamped CSV files.
type CSVExporter struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

// NewCSVExporter creates an exporter writing into dir.
func NewCSVExporter(dir string, logger logging.Logger) *CSVExporter {
	return &CSVExporter{dir: dir, logger: logger, now: time.Now}
}

// Name identifies the export target.
func (e *CSVExporter) Name() string {
	return "csv"
}

// Export writes expenses_<first>_<last>_<stamp>.csv and the matching income
// file, where first and last are the booking dates the session covers.
// Either file is written even when its list is empty, so a finalized session
// always leaves both files behind. When the income file cannot be written
// the expenses file is removed again.
func (e *CSVExporter) Export(ctx context.Context, income, expenses []models.Categorized) error {
	if err := ctx.Err(); err != nil {
		return &apperror.ExportError{Target: e.Name(), Err: err}
	}
	if err := fileutils.EnsureDirectoryExists(e.dir, models.PermissionDirectory); err != nil {
		return &apperror.ExportError{Target: e.Name(), Err: err}
	}

	suffix := e.now().Format("20060102-150405") + ".csv"
	if dr := rangeOf(income, expenses).String(); dr != "" {
		suffix = dr + "_" + suffix
	}
	files := []struct {
		name string
		list []models.Categorized
	}{
		{"expenses_" + suffix, expenses},
		{"income_" + suffix, income},
	}
	var written []string
	for _, f := range files {
		path := filepath.Join(e.dir, f.name)
		if err := writeCSV(path, f.list); err != nil {
			e.rollback(written)
			return &apperror.ExportError{Target: e.Name(), Err: err}
		}
		written = append(written, path)
	}
	for i, path := range written {
		e.logger.Info("Exported transactions",
			logging.F(logging.FieldFile, path),
			logging.F(logging.FieldCount, len(files[i].list)))
	}
	return nil
}

func (e *CSVExporter) rollback(paths []string) {
	for _, path := range paths {
		if err := fileutils.RemoveIfExists(path); err != nil {
			e.logger.WithError(err).Warn("Failed to remove partial export",
				logging.F(logging.FieldFile, path))
		}
	}
}

func writeCSV(path string, list []models.Categorized) error {
	records := make([]csvRecord, 0, len(list))
	for _, c := range list {
		records = append(records, csvRecord{
			Date:         c.Transaction.DateString(),
			Amount:       c.Transaction.AmountString(),
			Currency:     c.Transaction.Currency,
			Category:     c.Assignment.Code,
			Label:        c.Assignment.Label,
			Description:  describe(c),
			Counterparty: c.Transaction.Counterparty,
			Remittance:   c.Transaction.Description,
			Source:       c.Assignment.Source,
			Identity:     c.Transaction.Identity,
		})
	}

	var buf bytes.Buffer
	if err := gocsv.MarshalCSV(&records, gocsv.NewSafeCSVWriter(csv.NewWriter(&buf))); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return fileutils.WriteFileAtomic(path, buf.Bytes(), models.PermissionExportFile)
}
