package export

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Column blocks of the bookkeeping sheet.
const (
	expenseColumns = "B:E"
	incomeColumns  = "G:J"
)

// valueAppender appends rows below the data found in a range.
type valueAppender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

type serviceAppender struct {
	svc *gsheet.Service
}

func (s serviceAppender) Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// SheetsExporter appends expenses to columns B-E and income to columns G-J
// of one tab: date, amount, description, category.
type SheetsExporter struct {
	appender      valueAppender
	spreadsheetID string
	tab           string
	logger        logging.Logger
}

// NewSheetsExporter authenticates with the service account key in
// credentialsFile.
func NewSheetsExporter(ctx context.Context, spreadsheetID, tab, credentialsFile string, logger logging.Logger) (*SheetsExporter, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSheetsExporter(serviceAppender{svc: svc}, spreadsheetID, tab, logger), nil
}

func newSheetsExporter(appender valueAppender, spreadsheetID, tab string, logger logging.Logger) *SheetsExporter {
	return &SheetsExporter{appender: appender, spreadsheetID: spreadsheetID, tab: tab, logger: logger}
}

// Name identifies the export target.
func (e *SheetsExporter) Name() string {
	return "sheets"
}

// Export appends both lists. Expenses go first; when they fail income is not
// attempted. Appends cannot be undone, so a failure on income reports the
// expenses as written.
func (e *SheetsExporter) Export(ctx context.Context, income, expenses []models.Categorized) error {
	blocks := []struct {
		columns string
		list    []models.Categorized
	}{
		{expenseColumns, expenses},
		{incomeColumns, income},
	}
	written := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		if len(b.list) == 0 {
			written[b.columns] = true
			continue
		}
		rng := e.rangeFor(b.columns)
		if err := e.appender.Append(ctx, e.spreadsheetID, rng, sheetValues(b.list)); err != nil {
			return &apperror.ExportError{
				Target:          e.Name(),
				Err:             fmt.Errorf("append to %s: %w", rng, err),
				ExpensesWritten: written[expenseColumns],
			}
		}
		written[b.columns] = true
		e.logger.Info("Appended rows to spreadsheet",
			logging.F(logging.FieldTarget, rng),
			logging.F(logging.FieldCount, len(b.list)))
	}
	return nil
}

func (e *SheetsExporter) rangeFor(columns string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(e.tab, "'", "''"), columns)
}

func sheetValues(list []models.Categorized) [][]interface{} {
	rows := make([][]interface{}, 0, len(list))
	for _, c := range list {
		r := toSheetRow(c)
		rows = append(rows, []interface{}{r.Date, r.Amount.InexactFloat64(), r.Description, r.Category})
	}
	return rows
}
