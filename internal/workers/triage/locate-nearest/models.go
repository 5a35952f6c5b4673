package locatenearest

type Input struct {
	Severity string  `json:"severity"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type Output struct {
	NearestHospital string  `json:"nearest_hospital"`
	Phone           *string `json:"phone"`
	DistanceKm      float64 `json:"distance_km"`
	Severity        string  `json:"severity"`
}
