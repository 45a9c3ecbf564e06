// Package extractors pulls transaction fields out of bank notification
// messages. Each message sub-format has its own Extractor; the Registry
// dispatches in a fixed priority order.
package extractors

import (
	"regexp"
	"strings"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
)

// Extractor is one message sub-format
type Extractor interface {
	Name() string
	Detect(doc *models.RawDocument) bool
	Extract(doc *models.RawDocument) (*Extraction, error)
}

// Extraction carries the fields read from one message before
// canonicalization. Amount is already parsed; text fields are de-escaped
// but otherwise untouched.
type Extraction struct {
	Extractor    string
	DocumentID   string
	MessageID    string
	Kind         models.Kind
	Direction    models.Direction
	Amount       decimal.Decimal
	Currency     models.Currency
	Counterparty string
	Memo         string
	Reference    string
	AccountHint  string
	OccurredAt   time.Time
}

// labelPattern matches the anchor phrases used across sub-formats. Longer
// phrases come first so alternation picks them over their prefixes.
var labelPattern = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	`nombre del beneficiario`,
	`n[uú]mero de referencia`,
	`n[uú]mero de comprobante`,
	`n[uú]mero de autorizaci[oó]n`,
	`fecha y hora`,
	`monto debitado`,
	`monto transferido`,
	`monto acreditado`,
	`monto del pago`,
	`cuenta destino`,
	`cuenta origen`,
	`tarjeta de cr[eé]dito`,
	`tipo de transacci[oó]n`,
	`beneficiario`,
	`destinatario`,
	`remitente`,
	`ordenante`,
	`comercio`,
	`establecimiento`,
	`monto`,
	`importe`,
	`concepto`,
	`motivo`,
	`detalle`,
	`descripci[oó]n`,
	`referencia`,
	`comprobante`,
	`autorizaci[oó]n`,
	`fecha`,
	`cajero`,
	`tarjeta`,
	`moneda`,
}, "|") + `)\s*:`)

// labelKeys folds label variants onto the anchor names extractors ask for
var labelKeys = map[string]string{
	"nombre del beneficiario":  "beneficiario",
	"destinatario":             "beneficiario",
	"ordenante":                "remitente",
	"numero de referencia":     "referencia",
	"numero de comprobante":    "referencia",
	"comprobante":              "referencia",
	"numero de autorizacion":   "autorizacion",
	"fecha y hora":             "fecha",
	"monto debitado":           "monto",
	"monto transferido":        "monto",
	"monto acreditado":         "monto",
	"monto del pago":           "monto",
	"importe":                  "monto",
	"establecimiento":          "comercio",
	"motivo":                   "concepto",
	"detalle":                  "concepto",
	"descripcion":              "concepto",
	"tarjeta de credito":       "tarjeta",
	"tipo de transaccion":      "tipo",
	"cuenta destino":           "cuenta destino",
	"cuenta origen":            "cuenta origen",
}

// anchors maps a folded anchor name to the first value seen for it
type anchors map[string]string

// scanAnchors reads "Label: value" pairs. Several labels may share a line;
// a label with nothing after it takes the next non-empty, label-free line.
func scanAnchors(text string) anchors {
	found := make(anchors)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i, line := range lines {
		matches := labelPattern.FindAllStringSubmatchIndex(line, -1)
		for j, m := range matches {
			key := normalizer.CollapseSpaces(normalizer.Fold(line[m[2]:m[3]]))
			if mapped, ok := labelKeys[key]; ok {
				key = mapped
			}

			end := len(line)
			if j+1 < len(matches) {
				end = matches[j+1][0]
			}
			value := strings.TrimSpace(line[m[1]:end])
			if value == "" && j+1 == len(matches) {
				value = nextValueLine(lines[i+1:])
			}

			if _, seen := found[key]; !seen && value != "" {
				found[key] = value
			}
		}
	}
	return found
}

func nextValueLine(rest []string) string {
	for _, line := range rest {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if labelPattern.MatchString(line) {
			return ""
		}
		return line
	}
	return ""
}

// Get returns the first non-empty value among keys
func (a anchors) Get(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := a[k]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// moneyToken finds the first amount, with its currency marker, in a value
var moneyToken = regexp.MustCompile(`(?i)(?:US\$|USD|CRC|₡|¢|\$)?\s*-?\d(?:[\d.,]*\d)?(?:\s*(?:CRC|USD|colones|d[oó]lares))?`)

// lastDigits finds a masked card or account suffix such as "****1234"
var lastDigits = regexp.MustCompile(`(\d{4})\s*$`)

// messageText joins subject and body so detectors see both
func messageText(doc *models.RawDocument) string {
	if doc.Envelope.Subject == "" {
		return doc.Text()
	}
	return doc.Envelope.Subject + "\n" + doc.Text()
}

// containsAny reports whether folded text contains any folded phrase
func containsAny(folded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// base carries the shared extraction steps. Each variant embeds it.
// locale is the amount convention of the variant's notifications.
type base struct {
	name   string
	dates  *normalizer.DateParser
	locale normalizer.Locale
}

func (b *base) Name() string { return b.name }

func (b *base) isMessage(doc *models.RawDocument) bool {
	return doc != nil && doc.Kind == models.DocumentMessage
}

// start scans anchors and fills the fields common to every variant: amount,
// currency, occurred-at, reference. A missing amount is a hard failure.
func (b *base) start(doc *models.RawDocument, kind models.Kind, direction models.Direction) (*Extraction, anchors, error) {
	a := scanAnchors(messageText(doc))

	ex := &Extraction{
		Extractor:  b.name,
		DocumentID: doc.ID,
		MessageID:  doc.Envelope.MessageID,
		Kind:       kind,
		Direction:  direction,
	}

	raw, ok := a.Get("monto")
	if !ok {
		return nil, a, errors.ExtractionError(b.name, doc.ID, "monto", nil)
	}
	token := moneyToken.FindString(raw)
	if token == "" {
		return nil, a, errors.ExtractionError(b.name, doc.ID, "monto",
			errors.NumberError(errors.CodeInvalidNumber, raw, "no amount token"))
	}
	amount, err := normalizer.ParseAmount(token, b.locale)
	if err != nil {
		return nil, a, errors.ExtractionError(b.name, doc.ID, "monto", err)
	}
	if !amount.Value.IsPositive() {
		return nil, a, errors.ExtractionError(b.name, doc.ID, "monto",
			errors.ValidationError(errors.CodeOutOfRange, "monto", amount.Value.String(), nil))
	}
	ex.Amount = amount.Value
	ex.Currency = amount.Currency
	if ex.Currency == models.CurrencyUnknown {
		ex.Currency = normalizer.DetectCurrency(raw)
	}
	if ex.Currency == models.CurrencyUnknown {
		if moneda, ok := a.Get("moneda"); ok {
			ex.Currency = normalizer.ParseCurrency(moneda)
		}
	}

	if raw, ok := a.Get("fecha"); ok {
		occurred, err := b.dates.ParseDate(raw)
		if err != nil {
			return nil, a, errors.ExtractionError(b.name, doc.ID, "fecha", err)
		}
		ex.OccurredAt = occurred
	} else if !doc.Envelope.ReceivedAt.IsZero() {
		ex.OccurredAt = doc.Envelope.ReceivedAt
	} else {
		return nil, a, errors.ExtractionError(b.name, doc.ID, "fecha", nil)
	}

	if ref, ok := a.Get("referencia", "autorizacion"); ok {
		ex.Reference = strings.Fields(ref)[0]
	}
	if card, ok := a.Get("tarjeta"); ok {
		if m := lastDigits.FindStringSubmatch(card); m != nil {
			ex.AccountHint = m[1]
		}
	}

	return ex, a, nil
}

// required returns a de-escaped anchor value or a MissingAnchor failure
func (b *base) required(doc *models.RawDocument, a anchors, field string, keys ...string) (string, error) {
	v, ok := a.Get(keys...)
	if !ok {
		return "", errors.ExtractionError(b.name, doc.ID, field, nil)
	}
	v = normalizer.Unescape(v)
	if v == "" {
		return "", errors.ExtractionError(b.name, doc.ID, field, nil)
	}
	return v, nil
}

// optional returns a de-escaped anchor value or empty
func optional(a anchors, keys ...string) string {
	v, _ := a.Get(keys...)
	return normalizer.Unescape(v)
}
