package notifydispatch

type Input struct {
	LevelOfCare     string  `json:"level_of_care"`
	NearestHospital string  `json:"nearest_hospital"`
	Phone           *string `json:"phone,omitempty"`
	DistanceKm      float64 `json:"distance_km"`
	FreeText        string  `json:"free_text,omitempty"`
	CaseID          string  `json:"case_id,omitempty"`
}

type Output struct {
	NotificationID string `json:"notification_id"`
	Status         string `json:"status"`
	SentAt         string `json:"sent_at"` // RFC 3339, empty unless sent
}

const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"  // below the priority threshold
	StatusDisabled = "disabled" // no channel enabled
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
