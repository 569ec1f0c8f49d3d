package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProfileCode identifies an access profile (booking channel).
type ProfileCode string

const (
	ProfileGeneral    ProfileCode = "g"
	ProfileDaily      ProfileCode = "w"
	ProfileBoutique   ProfileCode = "b"
	ProfileManagement ProfileCode = "m"
	ProfileStaff      ProfileCode = "s"
	ProfileVIP        ProfileCode = "v"
)

// ProfileCodes lists every known profile in display order.
var ProfileCodes = []ProfileCode{
	ProfileGeneral,
	ProfileDaily,
	ProfileBoutique,
	ProfileManagement,
	ProfileStaff,
	ProfileVIP,
}

// profileAliases maps lower-cased names and legacy link labels to codes.
var profileAliases = map[string]ProfileCode{
	"g":       ProfileGeneral,
	"genel":   ProfileGeneral,
	"general": ProfileGeneral,

	"w":      ProfileDaily,
	"günlük": ProfileDaily,
	"gunluk": ProfileDaily,
	"daily":  ProfileDaily,

	"b":        ProfileBoutique,
	"butik":    ProfileBoutique,
	"boutique": ProfileBoutique,

	"m":          ProfileManagement,
	"yönetim":    ProfileManagement,
	"yonetim":    ProfileManagement,
	"management": ProfileManagement,

	"s":          ProfileStaff,
	"bireysel":   ProfileStaff,
	"personel":   ProfileStaff,
	"staff":      ProfileStaff,
	"individual": ProfileStaff,

	"v":    ProfileVIP,
	"vip":  ProfileVIP,
	"özel": ProfileVIP,
	"ozel": ProfileVIP,
}

// Valid reports whether c is one of the known codes.
func (c ProfileCode) Valid() bool {
	for _, known := range ProfileCodes {
		if c == known {
			return true
		}
	}
	return false
}

func (c ProfileCode) String() string {
	return string(c)
}

// ParseProfileCode resolves a code, a long name or a link label such as "#s/42".
// Case folding tries Turkish rules first so that "YÖNETİM" and "GÜNLÜK" resolve.
func ParseProfileCode(raw string) (ProfileCode, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "#")
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		s = s[:idx]
	}
	if s == "" {
		return "", false
	}

	// Casers keep internal state and must not be shared between goroutines.
	for _, tag := range []language.Tag{language.Turkish, language.Und} {
		key := cases.Lower(tag).String(s)
		if code, ok := profileAliases[key]; ok {
			return code, true
		}
	}
	return "", false
}

// NormalizeProfileCode is total: unknown or empty input maps to the general profile.
func NormalizeProfileCode(raw string) ProfileCode {
	if code, ok := ParseProfileCode(raw); ok {
		return code
	}
	return ProfileGeneral
}

// ProfileSettings holds the booking rules of a single profile. Zero caps mean unlimited.
type ProfileSettings struct {
	Code               ProfileCode `json:"code"`
	MaxSlotAppointment int         `json:"max_slot_appointment"`
	MaxDailyDelivery   int         `json:"max_daily_delivery"`
	MaxDailyPerStaff   int         `json:"max_daily_per_staff"`
	Duration           int         `json:"duration"` // minutes
	SameDayBooking     bool        `json:"same_day_booking"`
}

// Fingerprint identifies the rule set, so views computed under older settings can be told apart.
func (p ProfileSettings) Fingerprint() string {
	return fmt.Sprintf("%s-%d-%d-%d-%d-%t", p.Code, p.MaxSlotAppointment, p.MaxDailyDelivery,
		p.MaxDailyPerStaff, p.Duration, p.SameDayBooking)
}

// DefaultDuration is used when a profile does not define its own.
const DefaultDuration = 60
