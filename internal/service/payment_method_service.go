package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/models"
	"velour/pkg/gateway"
)

// MethodStore is what the vault needs from persistence.
type MethodStore interface {
	Create(ctx context.Context, m *models.PaymentMethod) error
	ByID(ctx context.Context, id uint) (*models.PaymentMethod, error)
	ByUserAndToken(ctx context.Context, userID uint, provider, providerMethodID string) (*models.PaymentMethod, error)
	ActiveByUser(ctx context.Context, userID uint) ([]models.PaymentMethod, error)
	CountActive(ctx context.Context, userID uint) (int64, error)
	SetDefault(ctx context.Context, userID, methodID uint) error
	RemoveAndPromote(ctx context.Context, m *models.PaymentMethod) error
}

// PaymentMethodService is the vault: it tokenizes reusable instruments and
// owns the single-default invariant. Raw token ids never reach the logs.
type PaymentMethodService struct {
	store    MethodStore
	gateways *gateway.Registry
	sink     events.Sink
	logger   *zap.Logger
}

func NewPaymentMethodService(store MethodStore, gateways *gateway.Registry, sink events.Sink, logger *zap.Logger) *PaymentMethodService {
	return &PaymentMethodService{store: store, gateways: gateways, sink: sink, logger: logger}
}

type VaultInput struct {
	UserID          uint
	ProviderTokenID string
	Gateway         string
	Card            *gateway.CardDetails
}

// Vault stores a tokenized instrument. Repeat calls for the same
// (user, provider, token) are a no-op returning the existing record. When the
// caller omits card details the driver's token-detail lookup fills them;
// a driver without that capability is a configuration error.
func (s *PaymentMethodService) Vault(ctx context.Context, in VaultInput) (*models.PaymentMethod, error) {
	driver, err := s.gateways.Driver(in.Gateway)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ByUserAndToken(ctx, in.UserID, driver.Name(), in.ProviderTokenID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	card := in.Card
	if card == nil {
		inspector, ok := driver.(gateway.TokenInspector)
		if !ok {
			return nil, gateway.ErrCapabilityUnsupported
		}
		details, err := inspector.TokenDetails(ctx, in.ProviderTokenID)
		if err != nil {
			return nil, err
		}
		card = &details
	}

	count, err := s.store.CountActive(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	m := &models.PaymentMethod{
		UserID:           in.UserID,
		Provider:         driver.Name(),
		ProviderMethodID: in.ProviderTokenID,
		Brand:            card.Brand,
		LastFour:         card.LastFour,
		ExpMonth:         card.ExpMonth,
		ExpYear:          card.ExpYear,
		Fingerprint:      card.Fingerprint,
		IsDefault:        count == 0,
		Status:           domain.MethodActive,
	}
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentTokenCreated, map[string]any{
		"method_id": m.ID,
		"user_id":   m.UserID,
		"provider":  m.Provider,
	}))
	s.logger.Info("payment method vaulted",
		zap.Uint("user_id", in.UserID),
		zap.String("provider", m.Provider),
		zap.String("token", maskToken(in.ProviderTokenID)),
		zap.Bool("default", m.IsDefault),
	)
	return m, nil
}

// SetDefault makes the method the user's default. The store clears every
// other default flag in the same transaction scoped by user.
func (s *PaymentMethodService) SetDefault(ctx context.Context, userID, methodID uint) (*models.PaymentMethod, error) {
	m, err := s.store.ByID(ctx, methodID)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	if err := s.store.SetDefault(ctx, userID, methodID); err != nil {
		return nil, err
	}
	m.IsDefault = true
	return m, nil
}

// Delete soft-removes the method; when it was the default the store promotes
// the lowest-id remaining active method.
func (s *PaymentMethodService) Delete(ctx context.Context, userID, methodID uint) error {
	m, err := s.store.ByID(ctx, methodID)
	if err != nil {
		return err
	}
	if m.UserID != userID {
		return ErrOwnershipMismatch
	}
	if err := s.store.RemoveAndPromote(ctx, m); err != nil {
		return err
	}
	s.logger.Info("payment method removed",
		zap.Uint("user_id", userID),
		zap.Uint("method_id", methodID),
		zap.String("token", maskToken(m.ProviderMethodID)),
	)
	return nil
}

// List returns the user's active methods, default first by convention of the
// caller; storage orders by id.
func (s *PaymentMethodService) List(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	return s.store.ActiveByUser(ctx, userID)
}

// maskToken keeps only the last four characters of a token for logs.
func maskToken(tok string) string {
	if len(tok) <= 4 {
		return "****"
	}
	return "****" + tok[len(tok)-4:]
}
