package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/application/auth"
	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/domain/contact"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
)

// Confirmation is a destructive action waiting for the operator's answer
type Confirmation struct {
	ID        uuid.UUID `json:"id"`
	ItemID    string    `json:"itemId"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateContactStatus sets a contact's status and optionally its priority,
// then refreshes the contacts tab.
func (c *Console) UpdateContactStatus(ctx context.Context, id, status, priority string) (View[contact.Contact], error) {
	update, err := parseUpdate(id, status, priority)
	if err != nil {
		return c.contactsTab.View(), err
	}
	return c.mutate(ctx, "update contact status",
		func(ctx context.Context) error {
			return c.contacts.UpdateItem(ctx, id, collection.ActionStatus, update)
		},
		"Status Updated", fmt.Sprintf("Contact marked as %s.", update.Status),
		"Update Failed", "Failed to update contact",
	)
}

func parseUpdate(id, status, priority string) (contact.Update, error) {
	verr := &validation.Error{}
	if strings.TrimSpace(id) == "" {
		verr.Add("id", "This field is required")
	}
	st, err := contact.ParseStatus(status)
	if err != nil {
		verr.Add("status", "Must be one of: new read replied closed")
	}
	var pr contact.Priority
	if strings.TrimSpace(priority) != "" {
		if pr, err = contact.ParsePriority(priority); err != nil {
			verr.Add("priority", "Must be one of: low medium high urgent")
		}
	}
	if err := verr.OrNil(); err != nil {
		return contact.Update{}, err
	}
	return contact.Update{Status: st, Priority: pr}, nil
}

type noteBody struct {
	Note    string `json:"note"`
	AddedBy string `json:"addedBy"`
}

// AddContactNote appends an admin note signed by the signed-in operator
func (c *Console) AddContactNote(ctx context.Context, id, note string) (View[contact.Contact], error) {
	note = strings.TrimSpace(note)
	verr := &validation.Error{}
	if strings.TrimSpace(id) == "" {
		verr.Add("id", "This field is required")
	}
	if note == "" {
		verr.Add("note", "This field is required")
	} else if len(note) > 2000 {
		verr.Add("note", "Must be at most 2000 characters")
	}
	if err := verr.OrNil(); err != nil {
		return c.contactsTab.View(), err
	}

	s, _, err := c.requireSession()
	if err != nil {
		return c.contactsTab.View(), err
	}
	author := s.Identity().Name
	if author == "" {
		author = c.config.NoteAuthor
	}

	return c.mutate(ctx, "add contact note",
		func(ctx context.Context) error {
			return c.contacts.UpdateItem(ctx, id, collection.ActionNote, noteBody{Note: note, AddedBy: author})
		},
		"Note Added", "The note was saved.",
		"Note Failed", "Failed to add note",
	)
}

// RequestContactDeletion asks for confirmation before deleting id. Nothing
// is sent to the backend.
func (c *Console) RequestContactDeletion(ctx context.Context, id string) (Confirmation, error) {
	if _, _, err := c.requireSession(); err != nil {
		return Confirmation{}, err
	}
	if strings.TrimSpace(id) == "" {
		verr := &validation.Error{}
		verr.Add("id", "This field is required")
		return Confirmation{}, verr
	}

	name := id
	for _, item := range c.contactsTab.View().Items {
		if item.ID == id {
			name = item.Label()
			break
		}
	}

	conf := Confirmation{
		ID:        uuid.New(),
		ItemID:    id,
		Prompt:    fmt.Sprintf("Delete the message from %s? This cannot be undone.", name),
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.pending[conf.ID] = conf
	c.mu.Unlock()

	logger.L(ctx, c.logger).Debug("deletion awaiting confirmation", zap.String("contact_id", id))
	return conf, nil
}

// Pending lists confirmations awaiting an answer
func (c *Console) Pending() []Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Confirmation, 0, len(c.pending))
	for _, conf := range c.pending {
		out = append(out, conf)
	}
	return out
}

func (c *Console) takeConfirmation(id uuid.UUID) (Confirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conf, ok := c.pending[id]
	delete(c.pending, id)
	return conf, ok
}

// ConfirmDeletion deletes the contact named by a pending confirmation and
// refreshes the contacts tab.
func (c *Console) ConfirmDeletion(ctx context.Context, confirmationID uuid.UUID) (View[contact.Contact], error) {
	conf, ok := c.takeConfirmation(confirmationID)
	if !ok {
		return c.contactsTab.View(), ErrUnknownConfirmation
	}
	return c.mutate(ctx, "delete contact",
		func(ctx context.Context) error {
			return c.contacts.DeleteItem(ctx, conf.ItemID)
		},
		"Contact Deleted", "The contact message has been successfully deleted.",
		"Delete Failed", "Failed to delete contact. Please try again.",
	)
}

// CancelDeletion drops a pending confirmation. The tab is left untouched
// and the result always wraps ErrConfirmationAborted.
func (c *Console) CancelDeletion(ctx context.Context, confirmationID uuid.UUID) (View[contact.Contact], error) {
	if _, ok := c.takeConfirmation(confirmationID); !ok {
		return c.contactsTab.View(), ErrUnknownConfirmation
	}
	logger.L(ctx, c.logger).Debug("deletion cancelled", zap.Stringer("confirmation_id", confirmationID))
	return c.contactsTab.View(), ErrConfirmationAborted
}

// mutate runs one contact mutation, then refreshes the tab on success. A
// failed mutation leaves the tab as it was.
func (c *Console) mutate(
	ctx context.Context,
	op string,
	call func(context.Context) error,
	okTitle, okBody, failTitle, failFallback string,
) (View[contact.Contact], error) {
	log := logger.L(ctx, c.logger)

	_, gen, err := c.requireSession()
	if err != nil {
		return c.contactsTab.View(), err
	}

	if err := call(ctx); err != nil {
		if errors.Is(err, apiclient.ErrUnauthorized) {
			c.unauthorized(ctx, gen)
			return c.contactsTab.View(), err
		}
		if c.guard.Generation() != gen {
			return c.contactsTab.View(), err
		}
		log.Warn(op+" failed", zap.String("outcome", apiclient.Outcome(err)), zap.Error(err))
		c.notify.Error(failTitle, operatorMessage(err, failFallback))
		return c.contactsTab.View(), err
	}

	if c.guard.Generation() != gen {
		// signed out while the call was in flight
		return c.contactsTab.View(), nil
	}
	log.Info(op)
	c.notify.Success(okTitle, okBody)
	return c.contactsTab.Refresh(ctx)
}

func loginMessage(err error) string {
	var le *auth.LoginError
	if errors.As(err, &le) {
		return le.Message
	}
	return "Login failed"
}
