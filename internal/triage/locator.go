package triage

import (
	"fmt"
	"math"

	"triage-workers/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by HaversineKm.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in km between two points given
// in signed decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ValidateCoordinate rejects latitudes outside ±90, longitudes outside ±180 and NaNs.
func ValidateCoordinate(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalidField("lat", "must be within [-90, 90], got %v", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return invalidField("lng", "must be within [-180, 180], got %v", lng)
	}
	return nil
}

// LocateNearest scans facilities in order and returns the closest one to
// (lat, lng). On equal distances the earlier facility wins. severity is passed
// through untouched and does not filter candidates.
func LocateNearest(severity string, lat, lng float64, facilities []models.Facility) (*models.LocationResult, error) {
	if err := ValidateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	if len(facilities) == 0 {
		return nil, fmt.Errorf("%w: facility registry is empty", ErrNoFacilityAvailable)
	}

	best := 0
	bestDist := HaversineKm(lat, lng, facilities[0].Lat, facilities[0].Lng)
	for i := 1; i < len(facilities); i++ {
		d := HaversineKm(lat, lng, facilities[i].Lat, facilities[i].Lng)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	nearest := facilities[best]
	return &models.LocationResult{
		NearestHospital: nearest.Name,
		Phone:           nearest.ContactPhone(),
		DistanceKm:      RoundKm(bestDist),
		Severity:        severity,
	}, nil
}

// RoundKm rounds to 2 decimal places, halves away from zero.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
