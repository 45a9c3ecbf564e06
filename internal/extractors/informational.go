package extractors

import (
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
)

// informationalPhrases mark notices that carry no transaction even when
// they mention amounts, cards or transfers.
var informationalPhrases = []string{
	"servicio activado",
	"se ha activado",
	"activacion de servicio",
	"activacion de sinpe",
	"afiliacion a sinpe",
	"cambio de contrasena",
	"cambio de clave",
	"cambio de pin",
	"restablecimiento de contrasena",
	"estado de cuenta disponible",
	"su estado de cuenta esta disponible",
	"estado de cuenta electronico",
	"inicio de sesion",
	"ingreso a banca en linea",
	"nuevo dispositivo",
	"codigo de verificacion",
	"actualizacion de datos",
	"promocion",
	"oferta especial",
	"boletin",
}

// Informational claims service notices, security alerts and promotions.
// It runs before every transactional extractor.
type Informational struct{}

// Name returns the detector name
func (Informational) Name() string { return "informational" }

// Detect checks subject and body for informational phrases
func (Informational) Detect(doc *models.RawDocument) bool {
	if doc == nil {
		return false
	}
	return containsAny(normalizer.Fold(messageText(doc)), informationalPhrases)
}
