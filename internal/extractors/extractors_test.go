package extractors

import (
	"testing"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(&normalizer.DateParser{Location: time.UTC})
}

func message(subject, body string) *models.RawDocument {
	return models.NewRawDocument(models.DocumentMessage, []byte(body), models.Envelope{
		Subject:    subject,
		MessageID:  "<msg-1@bank.example>",
		ReceivedAt: time.Date(2025, 9, 27, 16, 0, 0, 0, time.UTC),
	})
}

func TestRegistry_TransferOutScenario(t *testing.T) {
	doc := message("Notificación de transferencia", `Estimado cliente, se ha realizado una transferencia desde su cuenta.
Beneficiario: LUIS_MENA_MATA
Monto: 2.500,00 CRC
Concepto: comprale_un_regalito_a_juli
Referencia: 2025092710153400012345
Fecha: 27/09/2025 10:15`)

	ex, err := newTestRegistry().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "transfer_out", ex.Extractor)
	assert.Equal(t, models.KindTransferOut, ex.Kind)
	assert.Equal(t, models.DirectionDebit, ex.Direction)
	assert.True(t, ex.Amount.Equal(decimal.RequireFromString("2500.00")), "got %s", ex.Amount)
	assert.Equal(t, models.CurrencyCRC, ex.Currency)
	assert.Equal(t, "LUIS MENA MATA", ex.Counterparty)
	assert.Equal(t, "comprale un regalito a juli", ex.Memo)
	assert.Equal(t, "2025092710153400012345", ex.Reference)
	assert.Equal(t, time.Date(2025, 9, 27, 10, 15, 0, 0, time.UTC), ex.OccurredAt)
	assert.Equal(t, "<msg-1@bank.example>", ex.MessageID)
	assert.Equal(t, doc.ID, ex.DocumentID)
}

func TestRegistry_InformationalFirst(t *testing.T) {
	doc := message("Servicio activado", `Su servicio SINPE Móvil se ha activado.
Ya puede enviar transferencias.
Beneficiario: usted mismo
Monto: 0,00`)

	_, err := newTestRegistry().Extract(doc)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotATransaction))
	assert.ErrorIs(t, err, errors.ErrNotATransaction)
}

func TestRegistry_Purchase(t *testing.T) {
	doc := message("Transacción aprobada", `Comercio: AUTOMERCADO SUC. ESCAZU
Monto: USD 12.50
Fecha: Sep 27, 2025 02:32 p.m.
Tarjeta: VISA ****1234
Autorización: 123456`)

	ex, err := newTestRegistry().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, models.KindPurchase, ex.Kind)
	assert.Equal(t, models.DirectionDebit, ex.Direction)
	assert.Equal(t, models.CurrencyUSD, ex.Currency)
	assert.True(t, ex.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "AUTOMERCADO SUC. ESCAZU", ex.Counterparty)
	assert.Equal(t, "1234", ex.AccountHint)
	assert.Equal(t, "123456", ex.Reference)
	assert.Equal(t, 14, ex.OccurredAt.Hour())
}

func TestRegistry_TransferIn(t *testing.T) {
	doc := message("Transferencia recibida", `Remitente: MARIA_PEREZ_SOTO
Monto: ₡15.000,00
Concepto: alquiler_octubre`)

	ex, err := newTestRegistry().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, models.KindTransferIn, ex.Kind)
	assert.Equal(t, models.DirectionCredit, ex.Direction)
	assert.Equal(t, models.CurrencyCRC, ex.Currency)
	assert.True(t, ex.Amount.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, "MARIA PEREZ SOTO", ex.Counterparty)
	assert.Equal(t, "alquiler octubre", ex.Memo)
	assert.Equal(t, doc.Envelope.ReceivedAt, ex.OccurredAt)
}

func TestRegistry_CardlessWithdrawal(t *testing.T) {
	doc := message("Retiro sin tarjeta", `Monto: 20,000.00 CRC
Cajero: ATM BCR SAN PEDRO`)

	ex, err := newTestRegistry().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, models.KindWithdrawal, ex.Kind)
	assert.Equal(t, "ATM BCR SAN PEDRO", ex.Counterparty)
	assert.True(t, ex.Amount.Equal(decimal.NewFromInt(20000)))
}

func TestRegistry_CardPaymentBeforeTransfer(t *testing.T) {
	doc := message("Pago de tarjeta", `Se aplicó un pago de tarjeta mediante transferencia.
Beneficiario: TARJETA VISA
Tarjeta de crédito: ****9876
Monto del pago:
100.000,00 CRC`)

	ex, err := newTestRegistry().Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "card_payment", ex.Extractor)
	assert.Equal(t, models.KindCardPayment, ex.Kind)
	assert.Equal(t, cardPaymentCounterparty, ex.Counterparty)
	assert.Equal(t, "9876", ex.AccountHint)
	assert.True(t, ex.Amount.Equal(decimal.NewFromInt(100000)))
}

func TestRegistry_AmountConventionPerVariant(t *testing.T) {
	registry := newTestRegistry()

	tests := []struct {
		name      string
		doc       *models.RawDocument
		extractor string
		amount    string
	}{
		{"transfer decimal comma", message("Transferencia enviada", "Beneficiario: ANA\nMonto: 7,5 CRC"), "transfer_out", "7.5"},
		{"transfer grouping dot", message("Transferencia recibida", "Remitente: ANA\nMonto: 1.500 CRC"), "transfer_in", "1500"},
		{"withdrawal decimal point", message("Retiro sin tarjeta", "Monto: 5.5 CRC\nCajero: ATM BN"), "cardless_withdrawal", "5.5"},
		{"card payment decimal comma", message("Pago de tarjeta", "Se aplicó un pago de tarjeta.\nMonto del pago: 900,5 CRC"), "card_payment", "900.5"},
		{"purchase automatic", message("Transacción aprobada", "Comercio: SODA TICA\nMonto: USD 12.50"), "purchase", "12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := registry.Extract(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.extractor, ex.Extractor)
			assert.True(t, ex.Amount.Equal(decimal.RequireFromString(tt.amount)), "got %s", ex.Amount)
		})
	}

	_, err := registry.Extract(message("Retiro sin tarjeta", "Monto: 1,50 CRC\nCajero: ATM BN"))
	assert.True(t, errors.HasCode(err, errors.CodeAmbiguousNumberFormat), "a comma is grouping in withdrawals, got %v", err)
}

func TestRegistry_Failures(t *testing.T) {
	registry := newTestRegistry()

	t.Run("missing amount", func(t *testing.T) {
		_, err := registry.Extract(message("Transferencia enviada", "Beneficiario: ANA\nConcepto: cena"))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeExtractionFailure))
		assert.True(t, errors.HasCode(err, errors.CodeMissingAnchor))
	})

	t.Run("ambiguous amount", func(t *testing.T) {
		_, err := registry.Extract(message("Transferencia enviada", "Beneficiario: ANA\nMonto: 1.5 CRC"))
		require.Error(t, err)
		assert.Equal(t, errors.CodeExtractionFailure, errors.CodeOf(err))
		assert.True(t, errors.HasCode(err, errors.CodeAmbiguousNumberFormat))
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := registry.Extract(message("Compra", "Comercio: SODA TICA\nMonto: 3.000,00 CRC\nFecha: ayer"))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeUnrecognizedDateFormat))
	})

	t.Run("missing beneficiary", func(t *testing.T) {
		_, err := registry.Extract(message("Transferencia enviada", "Monto: 2.500,00 CRC"))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeMissingAnchor))
	})

	t.Run("unrecognized", func(t *testing.T) {
		_, err := registry.Extract(message("Hola", "¿Cómo estás?"))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrUnrecognizedDocument)
	})

	t.Run("statement kind", func(t *testing.T) {
		doc := models.NewRawDocument(models.DocumentStatement, []byte("Compra\nMonto: 1.00"), models.Envelope{})
		_, err := registry.Extract(doc)
		assert.True(t, errors.HasCode(err, errors.CodeUnrecognizedDocument))
	})
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t, []string{
		"informational",
		"card_payment",
		"transfer_in",
		"transfer_out",
		"cardless_withdrawal",
		"purchase",
	}, newTestRegistry().Names())
}

func TestScanAnchors(t *testing.T) {
	a := scanAnchors("Referencia: 998877 Fecha y hora: 01/10/2025 08:00\nNombre del beneficiario:\n  JOSE_ARAYA\nMonto: 1.00")

	ref, ok := a.Get("referencia")
	assert.True(t, ok)
	assert.Equal(t, "998877", ref)

	date, _ := a.Get("fecha")
	assert.Equal(t, "01/10/2025 08:00", date)

	who, _ := a.Get("beneficiario")
	assert.Equal(t, "JOSE_ARAYA", who)

	_, ok = a.Get("cajero")
	assert.False(t, ok)
}
