package contract

import (
	"context"

	"companion-be/internal/entity"
	"companion-be/internal/repository/specification"
)

type CharacterRepository interface {
	// Upsert inserts or updates by Key.
	Upsert(ctx context.Context, character *entity.Character) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Character, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Character, error)
}
