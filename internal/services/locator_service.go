package services

import (
	"context"
	"fmt"
	"sort"

	"roadassist/internal/config"
	"roadassist/internal/models"
	"roadassist/internal/repositories/interfaces"
	"roadassist/internal/utils"
	"roadassist/pkg/logger"
)

type LocatorService interface {
	// Locate filters providers to those within radiusMiles of the requester
	// and ranks them by ascending distance. Providers without coordinates
	// are skipped. An empty result is a valid outcome, not an error.
	Locate(requester models.Location, providers []*models.Provider, radiusMiles float64) []*models.RankedProvider

	// NearbyProviders assembles the candidate set from the catalog and
	// ranks it around the given point, widening the radius once when the
	// first pass comes back empty.
	NearbyProviders(ctx context.Context, lat, lng float64, categories []models.ProviderCategory) (*models.ProviderSearchResult, error)
}

type locatorService struct {
	providerRepo interfaces.ProviderRepository
	cfg          *config.DispatchConfig
	logger       *logger.Logger
}

func NewLocatorService(providerRepo interfaces.ProviderRepository, cfg *config.DispatchConfig, log *logger.Logger) LocatorService {
	return &locatorService{
		providerRepo: providerRepo,
		cfg:          cfg,
		logger:       log,
	}
}

func (s *locatorService) Locate(requester models.Location, providers []*models.Provider, radiusMiles float64) []*models.RankedProvider {
	ranked := make([]*models.RankedProvider, 0, len(providers))

	for _, provider := range providers {
		if !provider.HasLocation() {
			continue
		}

		distance := utils.CalculateDistance(
			requester.Latitude(), requester.Longitude(),
			provider.Location.Latitude(), provider.Location.Longitude(),
		)
		if distance > radiusMiles {
			continue
		}

		ranked = append(ranked, &models.RankedProvider{
			Provider:      provider,
			DistanceMiles: distance,
		})
	}

	// Ties break on provider id so the ordering is reproducible.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceMiles != ranked[j].DistanceMiles {
			return ranked[i].DistanceMiles < ranked[j].DistanceMiles
		}
		return ranked[i].Provider.ID.Hex() < ranked[j].Provider.ID.Hex()
	})

	for i, rp := range ranked {
		rp.Rank = i + 1
	}

	return ranked
}

func (s *locatorService) NearbyProviders(ctx context.Context, lat, lng float64, categories []models.ProviderCategory) (*models.ProviderSearchResult, error) {
	providers, err := s.providerRepo.GetByCategories(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider candidates: %w", err)
	}

	requester := models.NewPoint(lat, lng)
	radius := s.cfg.SearchRadiusMiles

	ranked := s.Locate(requester, providers, radius)
	widened := false

	if len(ranked) == 0 && s.cfg.WidenOnEmpty && s.cfg.MaxRadiusMiles > radius {
		radius = s.cfg.MaxRadiusMiles
		ranked = s.Locate(requester, providers, radius)
		widened = true

		s.logger.WithFields(map[string]interface{}{
			"radius_miles": radius,
			"candidates":   len(providers),
			"matches":      len(ranked),
		}).Info("Widened provider search radius after empty result")
	}

	return &models.ProviderSearchResult{
		Providers:   ranked,
		RadiusMiles: radius,
		Widened:     widened,
	}, nil
}
