package normalizer

import (
	"regexp"
	"strings"
)

// Canonical column names, in the order the canonical table is built.
const (
	colDate                = "date"
	colAccount             = "account"
	colCounterpartyAccount = "counterparty_account"
	colCounterparty        = "counterparty"
	colAmount              = "amount"
	colCurrency            = "currency"
	colCode                = "code"
	colSubCode             = "sub_code"
	colDescription         = "description"
)

var canonicalColumns = []string{
	colDate, colAccount, colCounterpartyAccount, colCounterparty,
	colAmount, colCurrency, colCode, colSubCode, colDescription,
}

var requiredColumns = []string{
	colDate, colAccount, colCounterpartyAccount, colCounterparty,
	colAmount, colCurrency, colCode, colDescription,
}

// headerAliases maps normalized header names to canonical columns. Names
// cover English exports, snake_case exports and the Dutch ASN export.
var headerAliases = map[string]string{
	"date":                    colDate,
	"booking_date":            colDate,
	"transaction_date":        colDate,
	"datum":                   colDate,
	"boekingsdatum":           colDate,
	"account":                 colAccount,
	"account_iban":            colAccount,
	"account_identifier":      colAccount,
	"own_account":             colAccount,
	"iban":                    colAccount,
	"rekening":                colAccount,
	"opdrachtgeversrekening":  colAccount,
	"counterparty_account":    colCounterpartyAccount,
	"counterparty_iban":       colCounterpartyAccount,
	"counterparty_identifier": colCounterpartyAccount,
	"tegenrekening":           colCounterpartyAccount,
	"tegenrekeningnummer":     colCounterpartyAccount,
	"counterparty":            colCounterparty,
	"counterparty_name":       colCounterparty,
	"name":                    colCounterparty,
	"naam":                    colCounterparty,
	"naam_tegenrekening":      colCounterparty,
	"tegenpartij":             colCounterparty,
	"amount":                  colAmount,
	"transaction_amount":      colAmount,
	"bedrag":                  colAmount,
	"transactiebedrag":        colAmount,
	"currency":                colCurrency,
	"transaction_currency":    colCurrency,
	"valuta":                  colCurrency,
	"valutasoort_mutatie":     colCurrency,
	"muntsoort":               colCurrency,
	"code":                    colCode,
	"transaction_code":        colCode,
	"bank_transaction_code":   colCode,
	"transactiecode":          colCode,
	"boekingscode":            colCode,
	"sub_code":                colSubCode,
	"global_transaction_code": colSubCode,
	"globale_transactiecode":  colSubCode,
	"description":             colDescription,
	"remittance":              colDescription,
	"remittance_information":  colDescription,
	"omschrijving":            colDescription,
	"mededelingen":            colDescription,
}

// asnPositions is the column layout of the headerless ASN export.
var asnPositions = map[string]int{
	colDate:                0,
	colAccount:             1,
	colCounterpartyAccount: 2,
	colCounterparty:        3,
	colCurrency:            9,
	colAmount:              10,
	colCode:                13,
	colSubCode:             14,
	colDescription:         17,
}

const asnMinColumns = 18

var headerSeparators = regexp.MustCompile(`[\s\-.]+`)

func normalizeHeader(h string) string {
	return headerSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_")
}
