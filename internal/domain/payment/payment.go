// Package payment describes the read-only payment records shown in the
// console and the receipt returned after checkout.
package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/sparknexora/backoffice/internal/domain/shared"
	"github.com/sparknexora/backoffice/internal/domain/shared/valueobject"
)

// Status of a payment as reported by the processor
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

var Statuses = []Status{StatusSucceeded, StatusPending, StatusFailed, StatusCanceled}

// legacy spellings still emitted by older backend records
var statusAliases = map[string]Status{
	"completed": StatusSucceeded,
	"paid":      StatusSucceeded,
	"refunded":  StatusCanceled,
	"cancelled": StatusCanceled,
}

// ParseStatus normalises a processor status, folding legacy spellings
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := statusAliases[key]; ok {
		return alias, nil
	}
	for _, known := range Statuses {
		if Status(key) == known {
			return known, nil
		}
	}
	return "", shared.NewDomainError("PAYMENT_INVALID_STATUS", fmt.Sprintf("unknown payment status %q", s))
}

// Payment is one processor charge linked to a package purchase
type Payment struct {
	ID            string            `json:"id"`
	Status        Status            `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	PackageName   string            `json:"packageName"`
	Price         valueobject.Money `json:"price"`
	Method        string            `json:"method,omitempty"`
	TransactionID string            `json:"transactionId,omitempty"`
	OrderRef      string            `json:"orderRef,omitempty"`
	Notes         string            `json:"notes,omitempty"`
}
