package storefront

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
)

type createdRecord struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
}

// SubmitContact validates a contact-form entry and forwards it to the
// backend. It returns the id the backend assigned, which may be empty.
func (s *Service) SubmitContact(ctx context.Context, sub contact.Submission) (string, error) {
	sub.Normalize()
	if err := s.validate.Struct(sub); err != nil {
		return "", err
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/contacts",
		Body:   sub,
	})
	if err != nil {
		logger.L(ctx, s.logger).Warn("contact submission failed", zap.String("outcome", apiclient.Outcome(err)), zap.Error(err))
		return "", err
	}

	// the backend may answer with no body at all; only a rejection matters
	var created createdRecord
	if err := resp.Decode(&created); err != nil && !errors.Is(err, apiclient.ErrMalformedResponse) {
		return "", err
	}
	id := created.ID
	if id == "" {
		id = created.LegacyID
	}
	logger.L(ctx, s.logger).Info("contact submitted", zap.String("contact_id", id), zap.String("service", sub.Service))
	return id, nil
}
