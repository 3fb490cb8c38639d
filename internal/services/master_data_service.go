package services

import (
	"context"

	"go.uber.org/zap"

	"sfa-workflow/internal/dto"
	"sfa-workflow/internal/repositories"
	"sfa-workflow/pkg/types"
	"sfa-workflow/pkg/utils"
)

type MasterDataServiceInterface interface {
	GetZones(ctx context.Context, filter types.Filter) ([]dto.ZoneDTO, uint64, error)
	GetDepots(ctx context.Context, filter types.Filter) ([]dto.DepotDTO, uint64, error)
}

type MasterDataService struct {
	zoneRepo  repositories.ZoneRepositoryInterface
	depotRepo repositories.DepotRepositoryInterface
	logger    *zap.Logger
}

func NewMasterDataService(
	zoneRepo repositories.ZoneRepositoryInterface,
	depotRepo repositories.DepotRepositoryInterface,
	logger *zap.Logger,
) MasterDataServiceInterface {
	return &MasterDataService{zoneRepo: zoneRepo, depotRepo: depotRepo, logger: logger}
}

func (s *MasterDataService) GetZones(ctx context.Context, filter types.Filter) ([]dto.ZoneDTO, uint64, error) {
	zones, total, err := s.zoneRepo.GetAll(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка при получении зон", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.ZoneDTO, len(zones))
	for i, z := range zones {
		result[i] = dto.ZoneDTO{ID: z.ID, Name: z.Name, Code: z.Code, IsActive: z.IsActive}
	}
	return result, total, nil
}

func (s *MasterDataService) GetDepots(ctx context.Context, filter types.Filter) ([]dto.DepotDTO, uint64, error) {
	depots, total, err := s.depotRepo.GetAll(ctx, filter)
	if err != nil {
		s.logger.Error("Ошибка при получении депо", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.DepotDTO, len(depots))
	for i, d := range depots {
		result[i] = dto.DepotDTO{
			ID:       d.ID,
			Name:     d.Name,
			Code:     d.Code,
			ZoneID:   utils.IDPtrToNullInt(d.ZoneID),
			IsActive: d.IsActive,
		}
	}
	return result, total, nil
}
