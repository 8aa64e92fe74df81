package collection

import (
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/payment"
)

// Contact actions accepted by UpdateItem on the contacts collection
const (
	ActionStatus = "status"
	ActionNote   = "note"
)

// ContactsClient reads and manages contact submissions
type ContactsClient = Client[contact.Contact]

// PaymentsClient reads payment records
type PaymentsClient = Client[payment.Payment]

// NewContactsClient binds /contacts. The backend lists them under "contacts"
// on its paginated endpoint and "items" elsewhere.
func NewContactsClient(api Transport, log *zap.Logger) *ContactsClient {
	return New[contact.Contact](api, "/contacts", DecodeContact, log, "items", "contacts")
}

// NewPaymentsClient binds /payments
func NewPaymentsClient(api Transport, log *zap.Logger) *PaymentsClient {
	c := New[payment.Payment](api, "/payments", DecodePayment, log, "items", "payments")
	c.statusKey = paymentStatusKey
	return c
}
