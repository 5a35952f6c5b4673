// internal/models/facility.go
package models

// Facility is one entry of the hospital registry.
type Facility struct {
	Name           string  `json:"name" yaml:"name" validate:"required"`
	Lat            float64 `json:"lat" yaml:"lat" validate:"latitude"`
	Lng            float64 `json:"lng" yaml:"lng" validate:"longitude"`
	Phone          *string `json:"phone,omitempty" yaml:"phone,omitempty" validate:"omitempty,min=3"`
	AmbulancePhone *string `json:"ambulance_phone,omitempty" yaml:"ambulance_phone,omitempty" validate:"omitempty,min=3"`
}

// ContactPhone returns the ambulance line when present, else the main line.
func (f Facility) ContactPhone() *string {
	if f.AmbulancePhone != nil && *f.AmbulancePhone != "" {
		p := *f.AmbulancePhone
		return &p
	}
	if f.Phone != nil && *f.Phone != "" {
		p := *f.Phone
		return &p
	}
	return nil
}

// LocationResult is the nearest facility for a query point.
type LocationResult struct {
	NearestHospital string  `json:"nearest_hospital"`
	Phone           *string `json:"phone"`
	DistanceKm      float64 `json:"distance_km"`
	Severity        string  `json:"severity,omitempty"`
}
