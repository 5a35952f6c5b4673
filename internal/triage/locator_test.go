package triage

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage-workers/internal/models"
)

func strPtr(s string) *string { return &s }

func TestHaversineKm(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(13.08, 80.27, 13.08, 80.27))
	assert.InDelta(t, 111.1949, HaversineKm(0, 0, 0, 1), 1e-3)
	assert.InDelta(t, 111.1949, HaversineKm(0, 0, 1, 0), 1e-3)
	assert.InDelta(t, math.Pi*EarthRadiusKm, HaversineKm(0, 0, 0, 180), 1e-6)
	assert.InDelta(t, HaversineKm(10, 20, 30, 40), HaversineKm(30, 40, 10, 20), 1e-9)
}

func TestRoundKm(t *testing.T) {
	assert.Equal(t, 1.13, RoundKm(1.125))
	assert.Equal(t, -1.13, RoundKm(-1.125))
	assert.Equal(t, 0.0, RoundKm(0.004))
	assert.Equal(t, 111.19, RoundKm(HaversineKm(0, 0, 0, 1)))
}

func TestLocateNearest(t *testing.T) {
	registry := []models.Facility{
		{Name: "A", Lat: 0, Lng: 0, Phone: strPtr("111")},
		{Name: "B", Lat: 10, Lng: 10, Phone: strPtr("222")},
	}

	res, err := LocateNearest("ALS", 0, 0, registry)
	require.NoError(t, err)
	assert.Equal(t, "A", res.NearestHospital)
	assert.Equal(t, 0.0, res.DistanceKm)
	assert.Equal(t, "ALS", res.Severity)
	require.NotNil(t, res.Phone)
	assert.Equal(t, "111", *res.Phone)

	res, err = LocateNearest("General", 9.9, 9.9, registry)
	require.NoError(t, err)
	assert.Equal(t, "B", res.NearestHospital)
	assert.Equal(t, "General", res.Severity)
}

func TestLocateNearest_EmptyRegistry(t *testing.T) {
	for _, facilities := range [][]models.Facility{nil, {}} {
		res, err := LocateNearest("ALS", 0, 0, facilities)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrNoFacilityAvailable))
	}
}

func TestLocateNearest_InvalidCoordinates(t *testing.T) {
	registry := []models.Facility{{Name: "A", Phone: strPtr("111")}}

	tests := []struct {
		name  string
		lat   float64
		lng   float64
		field string
	}{
		{"lat above", 91, 0, "lat"},
		{"lat below", -90.5, 0, "lat"},
		{"lng above", 0, 180.01, "lng"},
		{"lng below", 0, -181, "lng"},
		{"lat NaN", math.NaN(), 0, "lat"},
		{"lng NaN", 0, math.NaN(), "lng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := LocateNearest("BLS", tt.lat, tt.lng, registry)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			var inErr *InputError
			require.True(t, errors.As(err, &inErr))
			assert.Equal(t, tt.field, inErr.Field)
		})
	}
}

func TestLocateNearest_BoundaryCoordinatesAccepted(t *testing.T) {
	registry := []models.Facility{{Name: "Pole", Lat: 90, Lng: 180, Phone: strPtr("999")}}

	res, err := LocateNearest("BLS", 90, -180, registry)
	require.NoError(t, err)
	assert.Equal(t, "Pole", res.NearestHospital)
	assert.Equal(t, 0.0, res.DistanceKm)
}

func TestLocateNearest_TieKeepsEarlierFacility(t *testing.T) {
	registry := []models.Facility{
		{Name: "First", Lat: 1, Lng: 1, Phone: strPtr("111")},
		{Name: "Second", Lat: 1, Lng: 1, Phone: strPtr("222")},
		{Name: "Mirror", Lat: -1, Lng: -1, Phone: strPtr("333")},
	}

	for i := 0; i < 10; i++ {
		res, err := LocateNearest("ALS", 1, 1, registry)
		require.NoError(t, err)
		assert.Equal(t, "First", res.NearestHospital)
	}

	res, err := LocateNearest("ALS", 0, 0, registry)
	require.NoError(t, err)
	assert.Equal(t, "First", res.NearestHospital)
}

func TestLocateNearest_PhonePreference(t *testing.T) {
	tests := []struct {
		name     string
		facility models.Facility
		want     *string
	}{
		{
			name:     "ambulance line preferred",
			facility: models.Facility{Name: "X", Phone: strPtr("044-1"), AmbulancePhone: strPtr("108")},
			want:     strPtr("108"),
		},
		{
			name:     "main line fallback",
			facility: models.Facility{Name: "X", Phone: strPtr("044-1")},
			want:     strPtr("044-1"),
		},
		{
			name:     "empty ambulance line is absent",
			facility: models.Facility{Name: "X", Phone: strPtr("044-1"), AmbulancePhone: strPtr("")},
			want:     strPtr("044-1"),
		},
		{
			name:     "no phone at all",
			facility: models.Facility{Name: "X"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := LocateNearest("BLS", 0, 0, []models.Facility{tt.facility})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, res.Phone)
				return
			}
			require.NotNil(t, res.Phone)
			assert.Equal(t, *tt.want, *res.Phone)
		})
	}
}

func TestLocateNearest_ConcurrentReaders(t *testing.T) {
	registry := []models.Facility{
		{Name: "North", Lat: 13.1, Lng: 80.2, Phone: strPtr("1")},
		{Name: "South", Lat: 12.9, Lng: 80.2, Phone: strPtr("2")},
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lat := 13.2
			want := "North"
			if i%2 == 0 {
				lat, want = 12.8, "South"
			}
			res, err := LocateNearest("ALS", lat, 80.2, registry)
			if assert.NoError(t, err) {
				assert.Equal(t, want, res.NearestHospital)
			}
		}(i)
	}
	wg.Wait()
}
