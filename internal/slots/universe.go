package slots

import (
	"fmt"
	"sort"
)

// ShiftManagement covers the whole universe regardless of configured shifts.
const ShiftManagement = "management"

// Universe is the immutable set of bookable start hours and the shift filters over it.
type Universe struct {
	hours  []int
	index  map[int]bool
	shifts map[string][]int
}

// NewUniverse copies hours and shifts; callers may reuse their slices afterwards.
func NewUniverse(hours []int, shifts map[string][]int) *Universe {
	u := &Universe{
		hours:  append([]int(nil), hours...),
		index:  make(map[int]bool, len(hours)),
		shifts: make(map[string][]int, len(shifts)+1),
	}
	sort.Ints(u.hours)
	for _, h := range u.hours {
		u.index[h] = true
	}
	for name, set := range shifts {
		filtered := make([]int, 0, len(set))
		for _, h := range set {
			if u.index[h] {
				filtered = append(filtered, h)
			}
		}
		sort.Ints(filtered)
		u.shifts[name] = filtered
	}
	if _, ok := u.shifts[ShiftManagement]; !ok {
		u.shifts[ShiftManagement] = append([]int(nil), u.hours...)
	}
	return u
}

// Contains reports universe membership.
func (u *Universe) Contains(hour int) bool {
	return u.index[hour]
}

// Hours returns the ordered universe.
func (u *Universe) Hours() []int {
	return append([]int(nil), u.hours...)
}

// SlotsForShift returns the hours a shift can serve. Unknown shifts yield an empty set.
func (u *Universe) SlotsForShift(shift string) []int {
	return append([]int{}, u.shifts[shift]...)
}

// Shifts lists configured shift names in order.
func (u *Universe) Shifts() []string {
	names := make([]string, 0, len(u.shifts))
	for name := range u.shifts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the universe bounds for user-facing messages, e.g. "11:00-20:00".
func (u *Universe) Describe() string {
	if len(u.hours) == 0 {
		return "no hours"
	}
	return fmt.Sprintf("%02d:00-%02d:00", u.hours[0], u.hours[len(u.hours)-1])
}
