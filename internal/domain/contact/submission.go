package contact

import "strings"

// Services is what a visitor can pick on the contact form
var Services = []string{
	"Social Media Marketing",
	"Search Engine Optimization",
	"Pay-Per-Click Advertising",
	"Content Marketing",
	"Email Marketing",
	"Web Design & Development",
	"Branding & Strategy",
	"Custom Solution",
}

// IsKnownService reports whether s is one of Services
func IsKnownService(s string) bool {
	for _, known := range Services {
		if strings.EqualFold(s, known) {
			return true
		}
	}
	return false
}

// Submission is a public contact-form entry before it reaches the backend
type Submission struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Company  string `json:"company,omitempty" validate:"omitempty,max=120"`
	Subject  string `json:"subject,omitempty" validate:"omitempty,max=200"`
	Service  string `json:"service" validate:"required,agency_service"`
	Budget   string `json:"budget,omitempty" validate:"omitempty,max=60"`
	Timeline string `json:"timeline,omitempty" validate:"omitempty,max=60"`
	Message  string `json:"message" validate:"required,min=10,max=5000"`
	Source   string `json:"source,omitempty"`
}

// Normalize trims user input in place
func (s *Submission) Normalize() {
	for _, f := range []*string{&s.Name, &s.Email, &s.Phone, &s.Company, &s.Subject, &s.Service, &s.Budget, &s.Timeline, &s.Message} {
		*f = strings.TrimSpace(*f)
	}
	s.Email = strings.ToLower(s.Email)
	if s.Source == "" {
		s.Source = "website"
	}
}
