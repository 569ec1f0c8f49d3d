package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"randevu/internal/model"
)

// ProfileConfig represents a single profile's booking rules.
type ProfileConfig struct {
	MaxSlotAppointment int  `yaml:"max_slot_appointment"`
	MaxDailyDelivery   int  `yaml:"max_daily_delivery"`
	MaxDailyPerStaff   int  `yaml:"max_daily_per_staff"`
	Duration           int  `yaml:"duration"`
	SameDayBooking     bool `yaml:"same_day_booking"`
}

// ProfilesConfig is the root configuration for profiles.yaml.
type ProfilesConfig struct {
	SlotUniverse []int                    `yaml:"slot_universe"`
	Shifts       map[string][]int         `yaml:"shifts"`
	Profiles     map[string]ProfileConfig `yaml:"profiles"`
}

// DefaultProfilesConfig mirrors the production defaults.
func DefaultProfilesConfig() *ProfilesConfig {
	return &ProfilesConfig{
		SlotUniverse: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		Shifts: map[string][]int{
			"morning": {11, 12, 13, 14, 15, 16, 17},
			"evening": {14, 15, 16, 17, 18, 19, 20},
			"full":    {11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
		},
		Profiles: map[string]ProfileConfig{
			"g": {MaxSlotAppointment: 1, MaxDailyDelivery: 3, Duration: 60},
			"w": {MaxSlotAppointment: 1, MaxDailyDelivery: 3, Duration: 60, SameDayBooking: true},
			"b": {MaxSlotAppointment: 1, MaxDailyDelivery: 3, MaxDailyPerStaff: 4, Duration: 60},
			"m": {MaxSlotAppointment: 0, Duration: 60, SameDayBooking: true},
			"s": {MaxSlotAppointment: 1, MaxDailyDelivery: 3, MaxDailyPerStaff: 4, Duration: 60},
			"v": {MaxSlotAppointment: 2, MaxDailyDelivery: 3, Duration: 60, SameDayBooking: true},
		},
	}
}

// LoadProfilesConfig loads and validates profiles configuration from YAML file.
// A missing file yields the built-in defaults.
func LoadProfilesConfig(path string) (*ProfilesConfig, error) {
	if path == "" {
		path = DefaultProfilesPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultProfilesConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profiles config: %w", err)
	}

	var cfg ProfilesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse profiles config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate profiles config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ProfilesConfig) Validate() error {
	if len(c.SlotUniverse) == 0 {
		return fmt.Errorf("slot_universe is empty")
	}

	seen := make(map[int]bool, len(c.SlotUniverse))
	for i, h := range c.SlotUniverse {
		if h < 0 || h > 23 {
			return fmt.Errorf("slot_universe[%d]: hour %d out of range 0-23", i, h)
		}
		if seen[h] {
			return fmt.Errorf("slot_universe[%d]: duplicate hour %d", i, h)
		}
		seen[h] = true
	}

	for name, hours := range c.Shifts {
		for i, h := range hours {
			if !seen[h] {
				return fmt.Errorf("shifts.%s[%d]: hour %d is not in slot_universe", name, i, h)
			}
		}
	}

	if _, ok := c.Profiles[string(model.ProfileGeneral)]; !ok {
		return fmt.Errorf("profiles.%s is required as the fallback profile", model.ProfileGeneral)
	}

	for key, p := range c.Profiles {
		code, ok := model.ParseProfileCode(key)
		if !ok || string(code) != key {
			return fmt.Errorf("profiles.%s: unknown profile code", key)
		}
		if p.MaxSlotAppointment < 0 {
			return fmt.Errorf("profiles.%s.max_slot_appointment cannot be negative", key)
		}
		if p.MaxDailyDelivery < 0 {
			return fmt.Errorf("profiles.%s.max_daily_delivery cannot be negative", key)
		}
		if p.MaxDailyPerStaff < 0 {
			return fmt.Errorf("profiles.%s.max_daily_per_staff cannot be negative", key)
		}
		if p.Duration != 0 && (p.Duration < model.MinDurationMinutes || p.Duration > model.MaxDurationMinutes) {
			return fmt.Errorf("profiles.%s.duration must be between %d and %d",
				key, model.MinDurationMinutes, model.MaxDurationMinutes)
		}
	}

	return nil
}

// applyDefaults fills unset durations and sorts the universe.
func (c *ProfilesConfig) applyDefaults() {
	sort.Ints(c.SlotUniverse)

	generalDuration := c.Profiles[string(model.ProfileGeneral)].Duration
	if generalDuration == 0 {
		generalDuration = model.DefaultDuration
	}
	for key, p := range c.Profiles {
		if p.Duration == 0 {
			p.Duration = generalDuration
			c.Profiles[key] = p
		}
	}
}

// Settings converts the profile map to domain settings. Every known code gets a record;
// codes missing from the file inherit the general profile.
func (c *ProfilesConfig) Settings() map[model.ProfileCode]model.ProfileSettings {
	general := c.Profiles[string(model.ProfileGeneral)]
	out := make(map[model.ProfileCode]model.ProfileSettings, len(model.ProfileCodes))
	for _, code := range model.ProfileCodes {
		p, ok := c.Profiles[string(code)]
		if !ok {
			p = general
		}
		out[code] = model.ProfileSettings{
			Code:               code,
			MaxSlotAppointment: p.MaxSlotAppointment,
			MaxDailyDelivery:   p.MaxDailyDelivery,
			MaxDailyPerStaff:   p.MaxDailyPerStaff,
			Duration:           p.Duration,
			SameDayBooking:     p.SameDayBooking,
		}
	}
	return out
}

// String returns a summary of the configuration.
func (c *ProfilesConfig) String() string {
	first, last := 0, 0
	if n := len(c.SlotUniverse); n > 0 {
		first, last = c.SlotUniverse[0], c.SlotUniverse[n-1]
	}
	return fmt.Sprintf("ProfilesConfig: %d profiles, %d slots (%02d:00-%02d:00), %d shifts",
		len(c.Profiles), len(c.SlotUniverse), first, last, len(c.Shifts))
}
