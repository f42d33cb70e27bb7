package service

import (
	"fmt"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/pkg/validator"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a workflow. Handlers build it from the
// verified token; workflows never look at request state themselves.
type Actor struct {
	ID     uuid.UUID
	Role   string
	Active bool
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == model.RoleAdmin
}

func requireActor(a *Actor) error {
	if a == nil || a.ID == uuid.Nil {
		return fmt.Errorf("%w: authentication required", apperr.ErrUnauthorized)
	}
	if !a.Active {
		return fmt.Errorf("%w: account is inactive", apperr.ErrUnauthorized)
	}
	return nil
}

func requireAdmin(a *Actor, action string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return fmt.Errorf("%w: only %s can %s", apperr.ErrForbidden, model.RoleAdmin, action)
	}
	return nil
}

// Notifier receives events after a workflow commits.
type Notifier interface {
	Publish(event any)
}

type nopNotifier struct{}

func (nopNotifier) Publish(any) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// Event is the websocket payload sent for every committed change.
type Event struct {
	Type    string    `json:"type"`
	Action  string    `json:"action"`
	Data    any       `json:"data"`
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return apperr.Validation("%s", errs[0].String())
	}
	return nil
}
