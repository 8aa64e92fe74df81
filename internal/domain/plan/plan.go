// Package plan is the fixed catalog of marketing packages sold on the site.
package plan

import (
	"strings"

	"github.com/sparknexora/backoffice/internal/domain/shared/valueobject"
)

// Plan is one package offering
type Plan struct {
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	Tagline   string            `json:"tagline"`
	Price     valueobject.Money `json:"price"`
	Period    string            `json:"period,omitempty"`
	Features  []string          `json:"features"`
	Popular   bool              `json:"popular,omitempty"`
	QuoteOnly bool              `json:"quoteOnly,omitempty"`
}

// Purchasable reports whether the plan can go through checkout
func (p Plan) Purchasable() bool {
	return !p.QuoteOnly && !p.Price.IsZero()
}

var catalog = []Plan{
	{
		Slug:    "starter-spark",
		Name:    "Starter Spark",
		Tagline: "Perfect for Small Businesses & Startups",
		Price:   valueobject.USDollars(199),
		Period:  "month",
		Features: []string{
			"Social Media Management (2 platforms)",
			"8 Custom Posts per Month",
			"Basic SEO (on-page optimization)",
			"Monthly Performance Report",
			"Email Support",
		},
	},
	{
		Slug:    "growth-ignite",
		Name:    "Growth Ignite",
		Tagline: "For Growing Brands Ready to Scale",
		Price:   valueobject.USDollars(499),
		Period:  "month",
		Popular: true,
		Features: []string{
			"Social Media Management (3 platforms)",
			"16 Custom Posts + Stories per Month",
			"Advanced SEO (on-page + off-page)",
			"Google My Business Optimization",
			"2 Paid Ad Campaigns",
			"Email + WhatsApp Support",
			"Bi-weekly Reports",
		},
	},
	{
		Slug:    "premium-blaze",
		Name:    "Premium Blaze",
		Tagline: "For Businesses Who Want to Dominate",
		Price:   valueobject.USDollars(999),
		Period:  "month",
		Features: []string{
			"Social Media Management (All platforms)",
			"30+ Custom Posts + Stories + Reels",
			"Full SEO Suite (on-page, off-page, technical)",
			"PPC Management (Google + Meta Ads)",
			"Blog Writing (4 per month)",
			"Email Marketing Campaigns (2 per month)",
			"Dedicated Account Manager",
			"Weekly Reports + Strategy Calls",
		},
	},
	{
		Slug:      "custom-power-plan",
		Name:      "Custom Power Plan",
		Tagline:   "Tailored for Your Business Needs",
		Price:     valueobject.Zero(valueobject.USD),
		QuoteOnly: true,
		Features: []string{
			"Website Design & Development",
			"Branding & Logo Design",
			"E-Commerce Marketing",
			"Influencer Marketing",
			"Video Ads & Creative Production",
			"Custom Strategy Development",
			"Priority Support",
			"Flexible Terms",
		},
	},
}

// All returns the catalog in display order
func All() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Find looks a plan up by slug or display name, case-insensitively
func Find(key string) (Plan, bool) {
	key = strings.TrimSpace(key)
	for _, p := range catalog {
		if strings.EqualFold(p.Slug, key) || strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return Plan{}, false
}
