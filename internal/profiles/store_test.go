package profiles

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"randevu/internal/config"
	"randevu/internal/model"
)

func TestStore_Get(t *testing.T) {
	store := NewStore(config.DefaultProfilesConfig().Settings())

	vip := store.Get(model.ProfileVIP)
	assert.Equal(t, model.ProfileVIP, vip.Code)
	assert.Equal(t, 2, vip.MaxSlotAppointment)

	unknown := store.Get(model.ProfileCode("zz"))
	assert.Equal(t, model.ProfileGeneral, unknown.Code)
	assert.Equal(t, store.Get(model.ProfileGeneral), unknown)
}

func TestStore_FallbackWhenGeneralMissing(t *testing.T) {
	store := NewStore(map[model.ProfileCode]model.ProfileSettings{
		model.ProfileVIP: {MaxSlotAppointment: 3},
	})

	g := store.Get(model.ProfileGeneral)
	assert.Equal(t, model.ProfileGeneral, g.Code)
	assert.Equal(t, 1, g.MaxSlotAppointment)
	assert.Equal(t, model.DefaultDuration, store.Get(model.ProfileVIP).Duration)
}

func TestStore_GetAllIsACopy(t *testing.T) {
	store := NewStore(config.DefaultProfilesConfig().Settings())

	all := store.GetAll()
	assert.Len(t, all, len(model.ProfileCodes))

	all[model.ProfileGeneral] = model.ProfileSettings{MaxSlotAppointment: 99}
	assert.Equal(t, 1, store.Get(model.ProfileGeneral).MaxSlotAppointment)
}

func TestStore_ReplaceIsAtomic(t *testing.T) {
	store := NewStore(map[model.ProfileCode]model.ProfileSettings{
		model.ProfileGeneral: {MaxSlotAppointment: 1},
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store.Replace(map[model.ProfileCode]model.ProfileSettings{
				model.ProfileGeneral: {MaxSlotAppointment: n},
			})
			_ = store.Get(model.ProfileGeneral)
		}(i + 1)
	}
	wg.Wait()

	got := store.Get(model.ProfileGeneral).MaxSlotAppointment
	assert.True(t, got >= 1 && got <= 8)
}
