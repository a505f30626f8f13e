package parking

type Slot struct {
	ID      string
	Type    VehicleType
	vehicle *Vehicle
}

func NewSlot(id string, slotType VehicleType) *Slot {
	return &Slot{
		ID:   id,
		Type: slotType,
	}
}

func (s *Slot) IsOccupied() bool {
	return s.vehicle != nil
}

// Vehicle returns the occupant, or nil when the slot is free.
func (s *Slot) Vehicle() *Vehicle {
	return s.vehicle
}

func (s *Slot) Assign(vehicle *Vehicle) error {
	if s.vehicle != nil {
		return ErrSlotOccupied
	}
	s.vehicle = vehicle
	return nil
}

func (s *Slot) Release() (*Vehicle, error) {
	if s.vehicle == nil {
		return nil, ErrSlotFree
	}
	vehicle := s.vehicle
	s.vehicle = nil
	return vehicle, nil
}
