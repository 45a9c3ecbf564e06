package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
)

var statementText = buildStatement()

func buildStatement() string {
	line := func(ref, date, desc, debit, credit string) string {
		return fmt.Sprintf("%-11s%-10s%-40s%15s%15s", ref, date, desc, debit, credit)
	}
	return strings.Join([]string{
		"ESTADO DE CUENTA",
		"FECHA DE CORTE: 15/10/2025",
		"CUENTA: 100-01-000-123456",
		"MONEDA: COLONES",
		"SALDO ANTERIOR 1,150.00",
		line("REFERENCIA", "FECHA", "DESCRIPCION", "DEBITOS", "CREDITOS"),
		line("093006688", "SEP/27", "COMPASS RUTA 32", "150.00", ""),
		line("093006689", "SEP/28", "SINPE MOVIL MARIA PEREZ", "", "15,000.00"),
		"093006690 - OCT/01 - UBER TRIP HELP.UBER.COM 3,500.00",
		"TOTAL DEBITOS 3,650.00",
		"TOTAL CREDITOS 15,000.00",
		"SALDO FINAL 12,500.00",
	}, "\n")
}

const uberEmail = `From: =?UTF-8?Q?Banco_Nacional?= <notificaciones@bank.example>
To: alice@example.com
Subject: =?UTF-8?Q?Transacci=C3=B3n_aprobada?=
Date: Wed, 01 Oct 2025 08:05:00 -0600
Message-Id: <m1@bank.example>
MIME-Version: 1.0
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

Transacci=C3=B3n aprobada
Comercio: UBER TRIP
Monto: 3.500,00 CRC
Fecha: 01/10/2025 08:00
`

const netflixEmail = `From: notificaciones@bank.example
To: alice@example.com
Subject: Transaccion aprobada
Date: Thu, 02 Oct 2025 09:31:00 -0600
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/html; charset=utf-8

<p>NETFLIX.COM</p>
--b1
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

VHJhbnNhY2Npw7NuIGFwcm9iYWRhCkNvbWVyY2lvOiBORVRGTElYLkNPTQpNb250bzogNy4wMDAs
MDAgQ1JDCkZlY2hhOiAwMi8xMC8yMDI1IDA5OjMwCg==
--b1--
`

func TestParseMessage_QuotedPrintable(t *testing.T) {
	doc, err := parseMessage([]byte(uberEmail))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Kind != models.DocumentMessage {
		t.Errorf("expected message document, got %s", doc.Kind)
	}
	if doc.Envelope.Subject != "Transacción aprobada" {
		t.Errorf("expected decoded subject, got %q", doc.Envelope.Subject)
	}
	if !strings.Contains(doc.Envelope.Sender, "Banco Nacional") {
		t.Errorf("expected decoded sender, got %q", doc.Envelope.Sender)
	}
	if doc.Envelope.MessageID != "<m1@bank.example>" {
		t.Errorf("expected message id, got %q", doc.Envelope.MessageID)
	}

	expected := time.Date(2025, 10, 1, 14, 5, 0, 0, time.UTC)
	if !doc.Envelope.ReceivedAt.Equal(expected) {
		t.Errorf("expected received at %s, got %s", expected, doc.Envelope.ReceivedAt)
	}

	body := string(doc.Bytes())
	if !strings.HasPrefix(body, "Transacción aprobada\n") {
		t.Errorf("expected decoded body, got %q", body)
	}
	if !strings.Contains(body, "Comercio: UBER TRIP") {
		t.Errorf("body should contain the merchant line, got %q", body)
	}
	if strings.Contains(body, "Subject:") {
		t.Error("headers should not be part of the body")
	}
}

func TestParseMessage_Multipart(t *testing.T) {
	doc, err := parseMessage([]byte(netflixEmail))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Envelope.MessageID != "" {
		t.Errorf("expected no message id, got %q", doc.Envelope.MessageID)
	}
	body := string(doc.Bytes())
	if !strings.Contains(body, "Comercio: NETFLIX.COM") || !strings.Contains(body, "Monto: 7.000,00 CRC") {
		t.Errorf("expected the text/plain part, got %q", body)
	}
	if strings.Contains(body, "<p>") {
		t.Error("html part should be skipped")
	}
}

func TestParseMessage_BodyVariants(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		contains []string
		absent   []string
	}{
		{
			name: "html only",
			data: "Subject: Compra\nContent-Type: text/html; charset=utf-8\n\n" +
				"<html><head><style>p{color:red}</style></head><body>" +
				"<p>Transacci&oacute;n aprobada</p><table><tr><td>Comercio:</td><td>SODA TAPIA</td></tr>" +
				"<tr><td>Monto:</td><td>3.000,00 CRC</td></tr></table><br>Gracias</body></html>\n",
			contains: []string{"Transacción aprobada\n", "Comercio: SODA TAPIA\n", "Monto: 3.000,00 CRC\n", "Gracias"},
			absent:   []string{"<", "color"},
		},
		{
			name: "nested alternative inside mixed",
			data: "Subject: Compra\nContent-Type: multipart/mixed; boundary=outer\n\n" +
				"--outer\nContent-Type: text/plain; charset=utf-8\nContent-Disposition: attachment; filename=terms.txt\n\nTerminos y condiciones\n" +
				"--outer\nContent-Type: multipart/alternative; boundary=inner\n\n" +
				"--inner\nContent-Type: text/html\n\n<p>ignored</p>\n" +
				"--inner\nContent-Type: text/plain; charset=utf-8\n\nComercio: UBER TRIP\nMonto: 3.500,00 CRC\n" +
				"--inner--\n--outer--\n",
			contains: []string{"Comercio: UBER TRIP", "Monto: 3.500,00 CRC"},
			absent:   []string{"Terminos", "ignored"},
		},
		{
			name: "latin-1 quoted printable",
			data: "Subject: Compra\nContent-Type: text/plain; charset=ISO-8859-1\nContent-Transfer-Encoding: quoted-printable\n\n" +
				"N=FAmero de autorizaci=F3n: 123456\nComercio: CAF=C9 BRIT\n",
			contains: []string{"Número de autorización: 123456", "Comercio: CAFÉ BRIT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parseMessage([]byte(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			body := string(doc.Bytes())
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("expected body to contain %q, got %q", want, body)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(body, unwanted) {
					t.Errorf("body should not contain %q, got %q", unwanted, body)
				}
			}
		})
	}
}

func TestParseMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an email", "not an email"},
		{"multipart without text", "Content-Type: multipart/mixed; boundary=x\n\n--x\nContent-Type: image/png\n\nabc\n--x--\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseMessage([]byte(tt.data)); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestParseMessage_NoDate(t *testing.T) {
	doc, err := parseMessage([]byte("Subject: hola\n\nComercio: UBER\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Envelope.ReceivedAt.IsZero() {
		t.Errorf("expected zero received at, got %s", doc.Envelope.ReceivedAt)
	}
	if string(doc.Bytes()) != "Comercio: UBER\n" {
		t.Errorf("unexpected body %q", doc.Bytes())
	}
}

func TestCollectMessageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.eml", "a.txt", "c.pdf", "D.EML"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "archive.eml"), 0755); err != nil {
		t.Fatalf("failed to create sub directory: %v", err)
	}
	single := filepath.Join(t.TempDir(), "single.msg")
	if err := os.WriteFile(single, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create single file: %v", err)
	}

	files, err := collectMessageFiles([]string{single, dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{
		single,
		filepath.Join(dir, "D.EML"),
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.eml"),
	}
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("expected %v, got %v", expected, files)
	}

	_, err = collectMessageFiles([]string{filepath.Join(dir, "missing")})
	if !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file not found error, got %v", err)
	}
}

func TestLoadDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	statement := filepath.Join(dir, "statement.txt")
	email := filepath.Join(dir, "uber.eml")
	broken := filepath.Join(dir, "broken.eml")
	for path, content := range map[string]string{statement: statementText, email: uberEmail, broken: "not an email"} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", path, err)
		}
	}

	statements, names, err := loadStatementFiles([]string{statement})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statements) != 1 || statements[0].Kind != models.DocumentStatement {
		t.Fatalf("expected one statement document, got %v", statements)
	}
	if names[statements[0].ID] != statement {
		t.Errorf("expected document name %s, got %s", statement, names[statements[0].ID])
	}

	messages, names, err := loadMessageFiles([]string{email})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 1 || names[messages[0].ID] != email {
		t.Errorf("expected one named message document, got %v", names)
	}

	_, _, err = loadMessageFiles([]string{email, broken})
	if !errors.HasCode(err, errors.CodeUnrecognizedDocument) {
		t.Errorf("expected unrecognized document error, got %v", err)
	}

	_, _, err = loadStatementFiles([]string{filepath.Join(dir, "missing.json")})
	if !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file not found error, got %v", err)
	}
}
