package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	GetCart(ctx context.Context, owner Owner) (*Cart, error)
	AddItem(ctx context.Context, owner Owner, variantID int64, quantity int) (*Cart, error)
	UpdateItemQuantity(ctx context.Context, owner Owner, itemID int64, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, owner Owner, itemID int64) (*Cart, error)
	MergeGuestCart(ctx context.Context, sessionID uuid.UUID, userID int64) (*Cart, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCart(ctx context.Context, owner Owner) (*Cart, error) {
	return s.repo.GetOrCreate(ctx, owner)
}

func (s *service) AddItem(ctx context.Context, owner Owner, variantID int64, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, errors.New("service: quantity must be greater than zero")
	}
	if variantID == 0 {
		return nil, ErrVariantNotFound
	}

	c, err := s.repo.GetOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, c.ID, variantID, quantity); err != nil {
		if errors.Is(err, ErrVariantNotFound) {
			return nil, ErrVariantNotFound
		}
		log.Error().Err(err).Int64("cart_id", c.ID).Int64("variant_id", variantID).Msg("service: failed to add cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return s.repo.GetByID(ctx, c.ID)
}

func (s *service) UpdateItemQuantity(ctx context.Context, owner Owner, itemID int64, quantity int) (*Cart, error) {
	if quantity < 0 {
		return nil, errors.New("service: quantity cannot be negative")
	}

	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateItemQuantity(ctx, c.ID, itemID, quantity); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, c.ID)
}

func (s *service) RemoveItem(ctx context.Context, owner Owner, itemID int64) (*Cart, error) {
	c, err := s.repo.GetByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RemoveItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, c.ID)
}

func (s *service) MergeGuestCart(ctx context.Context, sessionID uuid.UUID, userID int64) (*Cart, error) {
	if sessionID == uuid.Nil || userID == 0 {
		return nil, ErrNoOwner
	}

	if err := s.repo.Merge(ctx, sessionID, userID); err != nil {
		log.Error().Err(err).Stringer("session_id", sessionID).Int64("user_id", userID).Msg("service: failed to merge guest cart")
		return nil, fmt.Errorf("service: failed to merge guest cart: %w", err)
	}

	log.Info().Stringer("session_id", sessionID).Int64("user_id", userID).Msg("service: guest cart merged")

	return s.repo.GetOrCreate(ctx, Owner{UserID: userID})
}
