package services

import (
	"context"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sfa-workflow/internal/entities"
	"sfa-workflow/pkg/types"
)

func TestMasterDataService(t *testing.T) {
	zones := &fakeZoneRepo{zones: map[uint64]entities.Zone{1: {ID: 1, Name: "Север", Code: "N", IsActive: "Y"}}}
	depots := &fakeDepotRepo{depots: map[uint64]entities.Depot{
		3: {ID: 3, Name: "Депо", Code: "D3", ZoneID: u64(1), IsActive: "Y"},
		4: {ID: 4, Name: "Склад", Code: "D4", IsActive: "N"},
	}}
	svc := NewMasterDataService(zones, depots, zap.NewNop())

	zoneList, total, err := svc.GetZones(context.Background(), types.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "N", zoneList[0].Code)

	depotList, total, err := svc.GetDepots(context.Background(), types.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, null.IntFrom(1), depotList[0].ZoneID)
	assert.False(t, depotList[1].ZoneID.Valid)
}
