package profiles

import (
	"sync/atomic"

	"randevu/internal/model"
)

// Store is a read-only lookup of profile settings. Reloads swap the whole snapshot.
type Store struct {
	snapshot atomic.Pointer[map[model.ProfileCode]model.ProfileSettings]
}

// NewStore builds a store from settings. The general profile must be present.
func NewStore(settings map[model.ProfileCode]model.ProfileSettings) *Store {
	s := &Store{}
	s.Replace(settings)
	return s
}

// Replace installs a new snapshot. The input map is copied.
func (s *Store) Replace(settings map[model.ProfileCode]model.ProfileSettings) {
	next := make(map[model.ProfileCode]model.ProfileSettings, len(settings))
	for code, p := range settings {
		p.Code = code
		if p.Duration == 0 {
			p.Duration = model.DefaultDuration
		}
		next[code] = p
	}
	if _, ok := next[model.ProfileGeneral]; !ok {
		next[model.ProfileGeneral] = model.ProfileSettings{
			Code:               model.ProfileGeneral,
			MaxSlotAppointment: 1,
			Duration:           model.DefaultDuration,
		}
	}
	s.snapshot.Store(&next)
}

// Get never fails: unknown codes resolve to the general profile.
func (s *Store) Get(code model.ProfileCode) model.ProfileSettings {
	m := *s.snapshot.Load()
	if p, ok := m[code]; ok {
		return p
	}
	return m[model.ProfileGeneral]
}

// GetAll returns a copy of every profile.
func (s *Store) GetAll() map[model.ProfileCode]model.ProfileSettings {
	m := *s.snapshot.Load()
	out := make(map[model.ProfileCode]model.ProfileSettings, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
