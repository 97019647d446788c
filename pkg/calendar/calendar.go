package calendar

import (
	"fmt"
	"time"
)

// Settings is the immutable calendar layout shared by the store and the HTTP layer.
type Settings struct {
	Slots     *SlotTable
	Household *Household
	Location  *time.Location
}

func NewSettings(slots *SlotTable, household *Household, location *time.Location) (*Settings, error) {
	if slots == nil || household == nil {
		return nil, fmt.Errorf("calendar settings require slots and household")
	}
	if location == nil {
		location = time.Local
	}
	return &Settings{Slots: slots, Household: household, Location: location}, nil
}

// DefaultSettings is the 06:00-24:00 grid with the default household.
func DefaultSettings() *Settings {
	return &Settings{
		Slots:     DefaultSlotTable(),
		Household: DefaultHousehold(),
		Location:  time.Local,
	}
}
