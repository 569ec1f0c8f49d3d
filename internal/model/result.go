package model

// RejectCode classifies a validation rejection for callers.
type RejectCode string

const (
	CodeInvalidHour       RejectCode = "invalid_hour"
	CodeSlotFull          RejectCode = "slot_full"
	CodeDailyLimit        RejectCode = "daily_limit"
	CodeStaffDailyLimit   RejectCode = "staff_daily_limit"
	CodeSameDayNotAllowed RejectCode = "same_day_not_allowed"
)

// ValidationResult is the outcome of the rule chain. A rejection is a value, not an error.
type ValidationResult struct {
	Valid               bool       `json:"valid"`
	Code                RejectCode `json:"code,omitempty"`
	Error               string     `json:"error,omitempty"`
	IsDayMaxed          bool       `json:"is_day_maxed,omitempty"`
	SuggestAlternatives bool       `json:"suggest_alternatives,omitempty"`
}

func Accept() ValidationResult {
	return ValidationResult{Valid: true}
}

func Reject(code RejectCode, msg string) ValidationResult {
	return ValidationResult{Valid: false, Code: code, Error: msg}
}

// ReservationResult is returned by the write path.
type ReservationResult struct {
	ValidationResult
	Reservation *Reservation `json:"reservation,omitempty"`
	DataVersion int64        `json:"data_version"`
}

// DayAvailability is the advisory occupancy view of a single day.
type DayAvailability struct {
	Date            string `json:"date"`
	Available       []int  `json:"available"`
	Occupied        []int  `json:"occupied"`
	DeliveryCount   int    `json:"delivery_count"`
	IsDeliveryMaxed bool   `json:"is_delivery_maxed"`
	Degraded        bool   `json:"degraded,omitempty"`
	DataVersion     int64  `json:"data_version"`
}
