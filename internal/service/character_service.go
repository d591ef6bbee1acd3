package service

import (
	"context"
	"time"

	"companion-be/internal/dto"
	"companion-be/internal/entity"
	"companion-be/internal/pkg/apperror"
	"companion-be/internal/pkg/logger"
	"companion-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const catalogCacheKey = "characters:active"

type ICharacterService interface {
	List(ctx context.Context) ([]*dto.CharacterResponse, error)
	// Invalidate drops the cached catalog, e.g. after a seed run.
	Invalidate()
}

type characterService struct {
	store  contract.ChatStore
	cache  *cache.Cache
	group  singleflight.Group
	logger logger.ILogger
}

func NewCharacterService(store contract.ChatStore, ttl time.Duration, log logger.ILogger) ICharacterService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &characterService{
		store:  store,
		cache:  cache.New(ttl, 2*ttl),
		logger: log,
	}
}

func (s *characterService) List(ctx context.Context) ([]*dto.CharacterResponse, error) {
	if x, found := s.cache.Get(catalogCacheKey); found {
		return toCharacterResponses(x.([]*entity.Character)), nil
	}

	// Concurrent misses share one store read.
	v, err, _ := s.group.Do(catalogCacheKey, func() (interface{}, error) {
		characters, err := s.store.ListActiveCharacters(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(catalogCacheKey, characters, cache.DefaultExpiration)
		s.logger.Debug("CharacterService", "Character catalog loaded", map[string]interface{}{
			"count": len(characters),
		})
		return characters, nil
	})
	if err != nil {
		return nil, apperror.Internal("failed to load characters", err)
	}
	return toCharacterResponses(v.([]*entity.Character)), nil
}

func (s *characterService) Invalidate() {
	s.cache.Delete(catalogCacheKey)
}

func toCharacterResponses(characters []*entity.Character) []*dto.CharacterResponse {
	res := make([]*dto.CharacterResponse, 0, len(characters))
	for _, c := range characters {
		res = append(res, &dto.CharacterResponse{
			Id:        c.Id,
			Key:       c.Key,
			Name:      c.Name,
			AvatarURL: optional(c.AvatarURL),
			StyleTags: nonNil(c.StyleTags),
		})
	}
	return res
}
