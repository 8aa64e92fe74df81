package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sparknexora/backoffice/internal/domain/shared/valueobject"
)

// Record is the loosely typed shape shared by the payment and order halves
// of a verification response. Any field may be missing.
type Record struct {
	ID            string           `json:"id"`
	OrderNumber   string           `json:"orderNumber"`
	Status        string           `json:"status"`
	PackageName   string           `json:"packageName"`
	PackagePrice  *decimal.Decimal `json:"packagePrice"`
	Currency      string           `json:"currency"`
	CustomerName  string           `json:"customerName"`
	CustomerEmail string           `json:"customerEmail"`
	PaidAt        *time.Time       `json:"paidAt"`
	CreatedAt     *time.Time       `json:"createdAt"`
}

// Receipt is what a visitor sees after returning from the processor
type Receipt struct {
	PaymentID     string            `json:"paymentId"`
	OrderNumber   string            `json:"orderNumber"`
	Status        Status            `json:"status"`
	PackageName   string            `json:"packageName"`
	Price         valueobject.Money `json:"price"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	PaidAt        *time.Time        `json:"paidAt,omitempty"`
}

// ResolveReceipt merges the two halves, taking each field from the payment
// when present and from the order otherwise.
func ResolveReceipt(pay, order Record) (Receipt, error) {
	status, err := ParseStatus(pick(pay.Status, order.Status))
	if err != nil {
		return Receipt{}, err
	}

	currency := valueobject.DefaultCurrency
	if code := pick(pay.Currency, order.Currency); code != "" {
		if currency, err = valueobject.ParseCurrency(code); err != nil {
			return Receipt{}, err
		}
	}

	amount := decimal.Zero
	switch {
	case pay.PackagePrice != nil:
		amount = *pay.PackagePrice
	case order.PackagePrice != nil:
		amount = *order.PackagePrice
	}
	price, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return Receipt{}, err
	}

	paidAt := pay.PaidAt
	if paidAt == nil {
		paidAt = order.CreatedAt
	}

	return Receipt{
		PaymentID:     pick(pay.ID, order.ID),
		OrderNumber:   pick(order.OrderNumber, pay.OrderNumber),
		Status:        status,
		PackageName:   pick(pay.PackageName, order.PackageName),
		Price:         price,
		CustomerName:  pick(pay.CustomerName, order.CustomerName),
		CustomerEmail: pick(pay.CustomerEmail, order.CustomerEmail),
		PaidAt:        paidAt,
	}, nil
}

func pick(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
