package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/pkg/db/models"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserRecipientResolver resolves the owner's mailbox from the users table.
type UserRecipientResolver struct {
	users userFinder
}

// NewUserRecipientResolver builds a resolver over the users repository.
func NewUserRecipientResolver(users userFinder) (*UserRecipientResolver, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &UserRecipientResolver{users: users}, nil
}

// RecipientForOrder loads the order owner's name and email.
func (r *UserRecipientResolver) RecipientForOrder(ctx context.Context, order *models.Order) (*Recipient, error) {
	if order == nil {
		return nil, fmt.Errorf("order is required")
	}
	user, err := r.users.FindByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("load order owner: %w", err)
	}
	return &Recipient{Name: user.Name, Email: user.Email}, nil
}
