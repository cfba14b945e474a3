// Package normalizer turns a bank CSV export into canonical transactions.
// A file is either fully accepted or rejected with a MalformedInputError;
// rows are never skipped silently.
package normalizer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"fjacquet/txsort/internal/apperror"
	"fjacquet/txsort/internal/currencyutils"
	"fjacquet/txsort/internal/dateutils"
	"fjacquet/txsort/internal/logging"
	"fjacquet/txsort/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

var (
	utf8BOM    = []byte("\xef\xbb\xbf")
	whitespace = regexp.MustCompile(`\s+`)
)

// rawRecord is one row of the canonical table.
type rawRecord struct {
	Date                string `csv:"date"`
	Account             string `csv:"account"`
	CounterpartyAccount string `csv:"counterparty_account"`
	Counterparty        string `csv:"counterparty"`
	Amount              string `csv:"amount"`
	Currency            string `csv:"currency"`
	Code                string `csv:"code"`
	SubCode             string `csv:"sub_code"`
	Description         string `csv:"description"`
}

type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

// Normalizer parses CSV exports. It is safe for concurrent use.
type Normalizer struct {
	delimiter rune
	rewrites  []rewrite
	logger    logging.Logger
}

// New creates a Normalizer splitting fields on delimiter and applying the
// description rewrites in order.
func New(delimiter rune, rewrites []models.RewriteConfig, logger logging.Logger) (*Normalizer, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	n := &Normalizer{delimiter: delimiter, logger: logger}
	for i, rw := range rewrites {
		re, err := regexp.Compile(rw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rewrite %d has invalid pattern: %w", i+1, err)
		}
		n.rewrites = append(n.rewrites, rewrite{pattern: re, replacement: rw.Replacement})
	}
	return n, nil
}

// line is one non-blank CSV record with its 1-based line number.
type line struct {
	number int
	fields []string
}

// Normalize reads the whole export from r and returns its transactions in
// file order, each carrying its identity.
func (n *Normalizer) Normalize(ctx context.Context, r io.Reader) ([]models.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &apperror.MalformedInputError{Line: firstInvalidLine(data), Reason: "input is not valid UTF-8"}
	}

	lines, err := n.readLines(data)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header, rows, numbers, err := canonicalize(lines)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var raws []rawRecord
	table := append([][]string{header}, rows...)
	if err := gocsv.UnmarshalCSV(&tableReader{rows: table}, &raws); err != nil {
		return nil, fmt.Errorf("error decoding canonical table: %w", err)
	}

	txs := make([]models.Transaction, 0, len(raws))
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := n.convert(raw, numbers[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	n.logger.Debug("Normalized CSV input", logging.F(logging.FieldCount, len(txs)))
	return txs, nil
}

func (n *Normalizer) readLines(data []byte) ([]line, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = n.delimiter
	cr.FieldsPerRecord = -1

	var lines []line
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &apperror.MalformedInputError{Line: parseErr.Line, Reason: "unreadable CSV", Err: parseErr.Err}
			}
			return nil, &apperror.MalformedInputError{Reason: "unreadable CSV", Err: err}
		}
		if isBlank(record) {
			continue
		}
		number, _ := cr.FieldPos(0)
		lines = append(lines, line{number: number, fields: record})
	}
}

// canonicalize maps the input onto the canonical column order. A first row
// starting with a date is taken as the headerless ASN layout.
func canonicalize(lines []line) ([]string, [][]string, []int, error) {
	if dateutils.LooksLikeDate(lines[0].fields[0]) {
		return canonicalizeASN(lines)
	}
	return canonicalizeHeader(lines)
}

func canonicalizeASN(lines []line) ([]string, [][]string, []int, error) {
	rows := make([][]string, 0, len(lines))
	numbers := make([]int, 0, len(lines))
	for _, l := range lines {
		if len(l.fields) < asnMinColumns {
			return nil, nil, nil, &apperror.MalformedInputError{
				Line:   l.number,
				Reason: fmt.Sprintf("expected at least %d fields, got %d", asnMinColumns, len(l.fields)),
			}
		}
		row := make([]string, len(canonicalColumns))
		for i, col := range canonicalColumns {
			row[i] = l.fields[asnPositions[col]]
		}
		rows = append(rows, row)
		numbers = append(numbers, l.number)
	}
	return canonicalColumns, rows, numbers, nil
}

func canonicalizeHeader(lines []line) ([]string, [][]string, []int, error) {
	headerLine := lines[0]
	positions := make(map[string]int, len(canonicalColumns))
	for i, h := range headerLine.fields {
		col, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := positions[col]; dup {
			return nil, nil, nil, &apperror.MalformedInputError{
				Line: headerLine.number, Field: col, Value: h, Reason: "column appears more than once",
			}
		}
		positions[col] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := positions[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, nil, &apperror.MalformedInputError{
			Line:   headerLine.number,
			Reason: fmt.Sprintf("missing required columns [%s]", strings.Join(missing, ", ")),
		}
	}

	width := len(headerLine.fields)
	rows := make([][]string, 0, len(lines)-1)
	numbers := make([]int, 0, len(lines)-1)
	for _, l := range lines[1:] {
		if len(l.fields) != width {
			return nil, nil, nil, &apperror.MalformedInputError{
				Line:   l.number,
				Reason: fmt.Sprintf("expected %d fields, got %d", width, len(l.fields)),
			}
		}
		row := make([]string, len(canonicalColumns))
		for i, col := range canonicalColumns {
			if pos, ok := positions[col]; ok {
				row[i] = l.fields[pos]
			}
		}
		rows = append(rows, row)
		numbers = append(numbers, l.number)
	}
	return canonicalColumns, rows, numbers, nil
}

func (n *Normalizer) convert(raw rawRecord, lineNumber int) (models.Transaction, error) {
	date, _, err := dateutils.ParseDate(raw.Date)
	if err != nil {
		return models.Transaction{}, &apperror.MalformedInputError{Line: lineNumber, Field: colDate, Value: raw.Date, Err: err}
	}

	amount, err := currencyutils.ParseAmount(raw.Amount)
	if err != nil {
		return models.Transaction{}, &apperror.MalformedInputError{Line: lineNumber, Field: colAmount, Value: raw.Amount, Err: err}
	}
	if !currencyutils.HasAtMostCents(amount) {
		return models.Transaction{}, &apperror.MalformedInputError{
			Line: lineNumber, Field: colAmount, Value: raw.Amount, Reason: "more than two decimal places",
		}
	}
	// Fixed scale keeps amounts identical after a persistence round trip.
	amount = decimal.RequireFromString(amount.StringFixed(2))

	tx := models.Transaction{
		Date:                date,
		Amount:              amount,
		Currency:            strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Account:             compactIdentifier(raw.Account),
		CounterpartyAccount: compactIdentifier(raw.CounterpartyAccount),
		Counterparty:        collapse(raw.Counterparty),
		Code:                strings.ToUpper(collapse(raw.Code + " " + raw.SubCode)),
		Description:         n.applyRewrites(collapse(raw.Description)),
	}
	return tx.WithIdentity(), nil
}

func (n *Normalizer) applyRewrites(s string) string {
	for _, rw := range n.rewrites {
		s = rw.pattern.ReplaceAllString(s, rw.replacement)
	}
	return collapse(s)
}

func collapse(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

func compactIdentifier(s string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(s, ""))
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func firstInvalidLine(data []byte) int {
	number := 1
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return number
		}
		if r == '\n' {
			number++
		}
		data = data[size:]
	}
	return number
}

// tableReader feeds an in-memory table to gocsv.
type tableReader struct {
	rows [][]string
	pos  int
}

func (t *tableReader) Read() ([]string, error) {
	if t.pos >= len(t.rows) {
		return nil, io.EOF
	}
	row := t.rows[t.pos]
	t.pos++
	return row, nil
}

func (t *tableReader) ReadAll() ([][]string, error) {
	rest := t.rows[t.pos:]
	t.pos = len(t.rows)
	return rest, nil
}
