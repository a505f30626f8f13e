package parking

import "fmt"

// SlotConfig asks for Count slots of Type on a level.
type SlotConfig struct {
	Type  VehicleType
	Count int
}

type LevelConfig struct {
	ID    string
	Slots []SlotConfig
}

// SlotStatus is a read-only snapshot of one slot.
type SlotStatus struct {
	LevelID       string
	SlotID        string
	Type          VehicleType
	Occupied      bool
	VehicleNumber string
}

func (s SlotStatus) Summary() string {
	if !s.Occupied {
		return "Free"
	}
	return "Occupied by " + s.VehicleNumber
}

// Availability counts the slots of one type on one level.
type Availability struct {
	LevelID  string
	Type     VehicleType
	Total    int
	Occupied int
}

func (a Availability) Free() int {
	return a.Total - a.Occupied
}

type Level struct {
	ID    string
	slots []*Slot
}

// NewLevel builds the slots of each config entry in order. Ordinals restart at
// 1 for every entry, so two entries with the same tag produce the same ids.
func NewLevel(id string, configs []SlotConfig) *Level {
	level := &Level{ID: id}
	for _, cfg := range configs {
		for i := 1; i <= cfg.Count; i++ {
			slotID := fmt.Sprintf("%s-%s-%d", id, cfg.Type.Tag(), i)
			level.slots = append(level.slots, NewSlot(slotID, cfg.Type))
		}
	}
	return level
}

func (l *Level) Slots() []*Slot {
	return l.slots
}

// FindAvailable returns the first free slot of the given type, or nil.
func (l *Level) FindAvailable(vehicleType VehicleType) *Slot {
	for _, slot := range l.slots {
		if !slot.IsOccupied() && slot.Type == vehicleType {
			return slot
		}
	}
	return nil
}

func (l *Level) Status() []SlotStatus {
	statuses := make([]SlotStatus, 0, len(l.slots))
	for _, slot := range l.slots {
		status := SlotStatus{
			LevelID:  l.ID,
			SlotID:   slot.ID,
			Type:     slot.Type,
			Occupied: slot.IsOccupied(),
		}
		if v := slot.Vehicle(); v != nil {
			status.VehicleNumber = v.Number
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Availability reports per-type counts in the order types first appear on the level.
func (l *Level) Availability() []Availability {
	var result []Availability
	index := make(map[VehicleType]int)
	for _, slot := range l.slots {
		i, ok := index[slot.Type]
		if !ok {
			i = len(result)
			index[slot.Type] = i
			result = append(result, Availability{LevelID: l.ID, Type: slot.Type})
		}
		result[i].Total++
		if slot.IsOccupied() {
			result[i].Occupied++
		}
	}
	return result
}
