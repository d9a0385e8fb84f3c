package aggregation

import (
	"testing"

	"gestion-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveryClient(d models.BonLivraison) (uint, bool) {
	if d.ClientID == nil {
		return 0, false
	}
	return *d.ClientID, true
}

func deliveryRevenue(d models.BonLivraison) decimal.Decimal { return Amount(d.TotalHT) }

func TestTopNGroupsAndSortsDescending(t *testing.T) {
	rows := []models.BonLivraison{
		{ClientID: u(1), TotalHT: f(100)},
		{ClientID: u(2), TotalHT: f(300)},
		{ClientID: u(1), TotalHT: f(250)},
		{ClientID: u(3), TotalHT: f(50)},
		{ClientID: nil, TotalHT: f(9999)},
	}

	top := TopN(rows, deliveryClient, deliveryRevenue, 2)

	require.Len(t, top, 2)
	assert.Equal(t, uint(1), top[0].Key)
	assert.True(t, top[0].Total.Equal(dec("350")))
	assert.Equal(t, 2, top[0].Count)
	assert.Equal(t, uint(2), top[1].Key)
}

func TestTopNTiesKeepFirstSeenOrder(t *testing.T) {
	rows := []models.BonLivraison{
		{ClientID: u(7), TotalHT: f(100)},
		{ClientID: u(3), TotalHT: f(100)},
		{ClientID: u(5), TotalHT: f(100)},
	}

	top := TopN(rows, deliveryClient, deliveryRevenue, 0)

	require.Len(t, top, 3)
	assert.Equal(t, []uint{7, 3, 5}, []uint{top[0].Key, top[1].Key, top[2].Key})
}

func TestTopNDefaultsToFive(t *testing.T) {
	var rows []models.BonLivraison
	for i := uint(1); i <= 8; i++ {
		rows = append(rows, models.BonLivraison{ClientID: u(i), TotalHT: f(float64(i))})
	}

	top := TopN(rows, deliveryClient, deliveryRevenue, -1)

	require.Len(t, top, DefaultTopN)
	assert.Equal(t, uint(8), top[0].Key)
	assert.Equal(t, uint(4), top[4].Key)
}
