// Package storefront serves the public side of the site: the contact form
// and the hand-off to the payment processor. Input is validated here and
// never reaches the backend when it fails.
package storefront

import (
	"context"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
)

// Transport is the slice of the backend client the storefront needs
type Transport interface {
	Do(ctx context.Context, req apiclient.Request) (*apiclient.Response, error)
}

// Service handles public submissions
type Service struct {
	api      Transport
	validate *validation.Validator
	logger   *zap.Logger
}

// New creates a storefront service
func New(api Transport, v *validation.Validator, log *zap.Logger) *Service {
	if v == nil {
		v = validation.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, validate: v, logger: log.Named("storefront")}
}

func fieldError(field, message string) error {
	verr := &validation.Error{}
	verr.Add(field, message)
	return verr
}
