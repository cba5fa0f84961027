// Package services – DiscountService
//
// This file implements the DiscountService, the read-only catalog lookup for
// discount definitions. Discounts are created and maintained by an external
// process; this service only resolves active ones by their public access key.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-discount-backend/internal/domain"
	"github.com/tbourn/go-discount-backend/internal/repo"
)

// DiscountRepo defines the repository contract required by DiscountService.
type DiscountRepo interface {
	// GetActiveDiscountByAccessKey fetches the active discount for accessKey.
	GetActiveDiscountByAccessKey(ctx context.Context, db *gorm.DB, accessKey string) (*domain.Discount, error)
}

// DiscountService resolves discount definitions by access key. It is
// side-effect-free: lookups never write.
type DiscountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the discount repository used by this service.
	Repo DiscountRepo
}

// NewDiscountService constructs a DiscountService bound to db and r.
func NewDiscountService(db *gorm.DB, r DiscountRepo) *DiscountService {
	return &DiscountService{DB: db, Repo: r}
}

// Resolve returns the active discount matching accessKey, or
// ErrDiscountNotFound when the key is unknown or the discount is inactive.
func (s *DiscountService) Resolve(ctx context.Context, accessKey string) (*domain.Discount, error) {
	d, err := s.Repo.GetActiveDiscountByAccessKey(ctx, s.DB, accessKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}
	return d, nil
}
