package collection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/domain/payment"
	"github.com/sparknexora/backoffice/internal/domain/shared/valueobject"
)

// recordID prefers "id" over the legacy "_id"
func recordID(id, legacyID string) string {
	if id != "" {
		return id
	}
	return legacyID
}

func parseTime(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unrecognised time %q", field, s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

type noteRecord struct {
	Note    string `json:"note"`
	AddedBy string `json:"addedBy"`
	AddedAt string `json:"addedAt"`
}

type contactRecord struct {
	ID         string       `json:"id"`
	LegacyID   string       `json:"_id"`
	Status     string       `json:"status"`
	Priority   string       `json:"priority"`
	CreatedAt  string       `json:"createdAt"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Company    string       `json:"company"`
	Subject    string       `json:"subject"`
	Message    string       `json:"message"`
	Service    string       `json:"service"`
	Budget     string       `json:"budget"`
	Timeline   string       `json:"timeline"`
	Source     string       `json:"source"`
	AdminNotes []noteRecord `json:"adminNotes"`
}

// DecodeContact maps one backend contact record
func DecodeContact(raw json.RawMessage) (contact.Contact, string, error) {
	var rec contactRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return contact.Contact{}, "", err
	}

	status, err := contact.ParseStatus(rec.Status)
	if err != nil {
		return contact.Contact{}, "", err
	}
	priority, err := contact.ParsePriority(rec.Priority)
	if err != nil {
		return contact.Contact{}, "", err
	}
	created, err := parseTime("createdAt", rec.CreatedAt)
	if err != nil {
		return contact.Contact{}, "", err
	}

	c := contact.Contact{
		ID:         recordID(rec.ID, rec.LegacyID),
		Status:     status,
		Priority:   priority,
		CreatedAt:  created,
		Name:       rec.Name,
		Email:      rec.Email,
		Phone:      rec.Phone,
		Company:    rec.Company,
		Subject:    rec.Subject,
		Message:    rec.Message,
		Service:    rec.Service,
		Budget:     rec.Budget,
		Timeline:   rec.Timeline,
		Source:     rec.Source,
		AdminNotes: make([]contact.AdminNote, 0, len(rec.AdminNotes)),
	}
	for _, n := range rec.AdminNotes {
		at, err := parseTime("adminNotes.addedAt", n.AddedAt)
		if err != nil {
			return contact.Contact{}, "", err
		}
		c.AdminNotes = append(c.AdminNotes, contact.AdminNote{Note: n.Note, AddedBy: n.AddedBy, AddedAt: at})
	}
	return c, c.ID, nil
}

type paymentRecord struct {
	ID            string              `json:"id"`
	LegacyID      string              `json:"_id"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"createdAt"`
	CompletedAt   string              `json:"completedAt"`
	CustomerName  string              `json:"customerName"`
	ClientName    string              `json:"clientName"`
	CustomerEmail string              `json:"customerEmail"`
	ClientEmail   string              `json:"clientEmail"`
	PackageName   string              `json:"packageName"`
	Amount        decimal.NullDecimal `json:"amount"`
	PackagePrice  decimal.NullDecimal `json:"packagePrice"`
	Currency      string              `json:"currency"`
	Method        string              `json:"method"`
	PaymentMethod string              `json:"paymentMethod"`
	TransactionID string              `json:"transactionId"`
	OrderRef      string              `json:"orderRef"`
	OrderNumber   string              `json:"orderNumber"`
	Reference     string              `json:"payoneerReference"`
	Notes         string              `json:"notes"`
}

// DecodePayment maps one backend payment record. Current field names win
// over the legacy client* and package* spellings.
func DecodePayment(raw json.RawMessage) (payment.Payment, string, error) {
	var rec paymentRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return payment.Payment{}, "", err
	}

	status, err := payment.ParseStatus(rec.Status)
	if err != nil {
		return payment.Payment{}, "", err
	}
	created, err := parseTime("createdAt", rec.CreatedAt)
	if err != nil {
		return payment.Payment{}, "", err
	}
	completed, err := parseTime("completedAt", rec.CompletedAt)
	if err != nil {
		return payment.Payment{}, "", err
	}

	currency := valueobject.DefaultCurrency
	if rec.Currency != "" {
		if currency, err = valueobject.ParseCurrency(rec.Currency); err != nil {
			return payment.Payment{}, "", err
		}
	}
	amount := decimal.Zero
	switch {
	case rec.Amount.Valid:
		amount = rec.Amount.Decimal
	case rec.PackagePrice.Valid:
		amount = rec.PackagePrice.Decimal
	}
	price, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return payment.Payment{}, "", err
	}

	p := payment.Payment{
		ID:            recordID(rec.ID, rec.LegacyID),
		Status:        status,
		CreatedAt:     created,
		CustomerName:  firstNonEmpty(rec.CustomerName, rec.ClientName),
		CustomerEmail: firstNonEmpty(rec.CustomerEmail, rec.ClientEmail),
		PackageName:   rec.PackageName,
		Price:         price,
		Method:        firstNonEmpty(rec.Method, rec.PaymentMethod),
		TransactionID: rec.TransactionID,
		OrderRef:      firstNonEmpty(rec.OrderRef, rec.OrderNumber, rec.Reference),
		Notes:         rec.Notes,
	}
	if !completed.IsZero() {
		p.CompletedAt = &completed
	}
	return p, p.ID, nil
}

// paymentStatusKey folds legacy status spellings in summary counts
func paymentStatusKey(s string) string {
	if st, err := payment.ParseStatus(s); err == nil {
		return string(st)
	}
	return strings.ToLower(strings.TrimSpace(s))
}

type bucket struct {
	ID    string `json:"_id"`
	Count int    `json:"count"`
}

type statsRecord struct {
	Overview *struct {
		TotalContacts   int `json:"totalContacts"`
		NewContacts     int `json:"newContacts"`
		ReadContacts    int `json:"readContacts"`
		RepliedContacts int `json:"repliedContacts"`
		ClosedContacts  int `json:"closedContacts"`
		RecentContacts  int `json:"recentContacts"`
		MonthlyContacts int `json:"monthlyContacts"`
	} `json:"overview"`
	Total         int            `json:"total"`
	ByStatus      map[string]int `json:"byStatus"`
	Recent        int            `json:"recent"`
	ThisMonth     int            `json:"thisMonth"`
	PriorityStats []bucket       `json:"priorityStats"`
	ServiceStats  []bucket       `json:"serviceStats"`
}

// DecodeStats maps the dashboard counters. The backend publishes them as an
// "overview" block with per-status fields; a flat byStatus map is also read.
func DecodeStats(raw json.RawMessage) (contact.Stats, error) {
	var rec statsRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return contact.Stats{}, err
	}

	s := contact.Stats{
		Total:     rec.Total,
		ByStatus:  make(map[contact.Status]int, len(contact.Statuses)),
		Recent:    rec.Recent,
		ThisMonth: rec.ThisMonth,
	}
	for _, st := range contact.Statuses {
		s.ByStatus[st] = 0
	}
	for k, n := range rec.ByStatus {
		st, err := contact.ParseStatus(k)
		if err != nil {
			return contact.Stats{}, err
		}
		s.ByStatus[st] += n
	}
	if o := rec.Overview; o != nil {
		s.Total = o.TotalContacts
		s.ByStatus[contact.StatusNew] = o.NewContacts
		s.ByStatus[contact.StatusRead] = o.ReadContacts
		s.ByStatus[contact.StatusReplied] = o.RepliedContacts
		s.ByStatus[contact.StatusClosed] = o.ClosedContacts
		s.Recent = o.RecentContacts
		s.ThisMonth = o.MonthlyContacts
	}
	if len(rec.PriorityStats) > 0 {
		s.Priority = make(map[string]int, len(rec.PriorityStats))
		for _, b := range rec.PriorityStats {
			s.Priority[firstNonEmpty(b.ID, string(contact.PriorityMedium))] += b.Count
		}
	}
	if len(rec.ServiceStats) > 0 {
		s.Service = make(map[string]int, len(rec.ServiceStats))
		for _, b := range rec.ServiceStats {
			s.Service[firstNonEmpty(b.ID, "Other")] += b.Count
		}
	}
	return s, nil
}
