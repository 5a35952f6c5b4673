package facility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"triage-workers/internal/common/errors"
	"triage-workers/internal/common/logger"
	"triage-workers/internal/common/metrics"
	"triage-workers/internal/models"
	"triage-workers/internal/triage"
)

var validate = validator.New()

// Registry is an immutable snapshot of the facility list. It is safe for
// concurrent use by any number of locate jobs.
type Registry struct {
	facilities []models.Facility
	source     string
	loadedAt   time.Time
}

// NewRegistry validates facilities and snapshots them in the given order.
func NewRegistry(source string, facilities []models.Facility) (*Registry, error) {
	if err := ValidateFacilities(facilities); err != nil {
		return nil, err
	}
	snapshot := make([]models.Facility, len(facilities))
	for i, f := range facilities {
		snapshot[i] = cloneFacility(f)
	}
	return &Registry{facilities: snapshot, source: source, loadedAt: time.Now().UTC()}, nil
}

// Load reads src once and builds a Registry from it.
func Load(ctx context.Context, src Source, log logger.Logger) (*Registry, error) {
	start := time.Now()
	facilities, err := src.Load(ctx)
	if err != nil {
		metrics.RegistryLoads.WithLabelValues(src.Name(), "error").Inc()
		log.Error("failed to load facility registry", map[string]interface{}{
			"source": src.Name(),
			"error":  err,
		})
		return nil, err
	}

	reg, err := NewRegistry(src.Name(), facilities)
	if err != nil {
		metrics.RegistryLoads.WithLabelValues(src.Name(), "invalid").Inc()
		log.Error("facility registry failed validation", map[string]interface{}{
			"source": src.Name(),
			"error":  err,
		})
		return nil, err
	}

	metrics.RegistryLoads.WithLabelValues(src.Name(), "success").Inc()
	metrics.RegistryFacilities.Set(float64(reg.Len()))
	log.Info("facility registry loaded", map[string]interface{}{
		"source":     src.Name(),
		"facilities": reg.Len(),
		"duration":   time.Since(start).String(),
	})
	return reg, nil
}

// ValidateFacilities checks every entry and reports all offending indexes.
func ValidateFacilities(facilities []models.Facility) error {
	var problems []string
	for i, f := range facilities {
		if strings.TrimSpace(f.Name) == "" {
			problems = append(problems, fmt.Sprintf("facilities[%d].name: must not be blank", i))
			continue
		}
		if err := validate.Struct(f); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range verrs {
					problems = append(problems, fmt.Sprintf("facilities[%d] (%s).%s: failed %s", i, f.Name, fe.Field(), fe.Tag()))
				}
				continue
			}
			problems = append(problems, fmt.Sprintf("facilities[%d]: %v", i, err))
		}
	}
	if len(problems) > 0 {
		return errors.NewRegistryValidationFailedError(strings.Join(problems, "; "))
	}
	return nil
}

func (r *Registry) Len() int { return len(r.facilities) }

func (r *Registry) Source() string { return r.source }

func (r *Registry) LoadedAt() time.Time { return r.loadedAt }

// Facilities returns a copy of the snapshot.
func (r *Registry) Facilities() []models.Facility {
	out := make([]models.Facility, len(r.facilities))
	for i, f := range r.facilities {
		out[i] = cloneFacility(f)
	}
	return out
}

// Nearest runs the locator over the snapshot.
func (r *Registry) Nearest(severity string, lat, lng float64) (*models.LocationResult, error) {
	return triage.LocateNearest(severity, lat, lng, r.facilities)
}

func cloneFacility(f models.Facility) models.Facility {
	out := f
	if f.Phone != nil {
		p := *f.Phone
		out.Phone = &p
	}
	if f.AmbulancePhone != nil {
		p := *f.AmbulancePhone
		out.AmbulancePhone = &p
	}
	return out
}
