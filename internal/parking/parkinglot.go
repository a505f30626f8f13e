package parking

import (
	"fmt"
	"sync"
	"time"
)

// Receipt describes a completed stay.
type Receipt struct {
	TicketID      string
	VehicleNumber string
	VehicleType   VehicleType
	LevelID       string
	SlotID        string
	EntryTime     time.Time
	ExitTime      time.Time
	Duration      time.Duration
	BilledHours   int64
	Fee           int
}

type Option func(*ParkingLot)

// WithClock replaces time.Now as the source of entry and exit instants.
func WithClock(now func() time.Time) Option {
	return func(pl *ParkingLot) {
		pl.now = now
	}
}

func WithRates(rates RateTable) Option {
	return func(pl *ParkingLot) {
		pl.rates = rates
	}
}

// WithDefaultRate sets the hourly rate for types missing from the rate table.
func WithDefaultRate(rate int) Option {
	return func(pl *ParkingLot) {
		pl.defaultRate = rate
	}
}

// ParkingLot allocates slots first-fit across ordered levels and bills stays
// on departure. All methods are safe for concurrent use.
type ParkingLot struct {
	mu          sync.Mutex
	levels      []*Level
	vehicles    map[string]*Slot
	slotLvl     map[*Slot]string
	capacity    int
	rates       RateTable
	defaultRate int
	now         func() time.Time
}

func NewParkingLot(configs []LevelConfig, opts ...Option) (*ParkingLot, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: at least one level is required", ErrInvalidLayout)
	}

	pl := &ParkingLot{
		vehicles: make(map[string]*Slot),
		slotLvl:  make(map[*Slot]string),
		rates:       DefaultRates(),
		defaultRate: DefaultRate,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(pl)
	}

	if pl.defaultRate < 0 {
		return nil, fmt.Errorf("%w: default rate %d", ErrInvalidRate, pl.defaultRate)
	}
	for t, rate := range pl.rates {
		if rate < 0 {
			return nil, fmt.Errorf("%w: %s rate %d", ErrInvalidRate, t, rate)
		}
	}

	levelIDs := make(map[string]bool)
	slotIDs := make(map[string]bool)
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("%w: level id is required", ErrInvalidLayout)
		}
		if levelIDs[cfg.ID] {
			return nil, fmt.Errorf("%w: duplicate level id %q", ErrInvalidLayout, cfg.ID)
		}
		levelIDs[cfg.ID] = true

		for _, sc := range cfg.Slots {
			if _, err := ParseVehicleType(string(sc.Type)); err != nil {
				return nil, fmt.Errorf("level %s: %w", cfg.ID, err)
			}
			if sc.Count < 0 {
				return nil, fmt.Errorf("%w: level %s has negative %s count", ErrInvalidLayout, cfg.ID, sc.Type)
			}
		}

		level := NewLevel(cfg.ID, cfg.Slots)
		for _, slot := range level.Slots() {
			if slotIDs[slot.ID] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSlotID, slot.ID)
			}
			slotIDs[slot.ID] = true
			pl.slotLvl[slot] = level.ID
		}
		pl.capacity += len(level.Slots())
		pl.levels = append(pl.levels, level)
	}

	return pl, nil
}

func (pl *ParkingLot) Park(vehicleNumber string, vehicleType VehicleType) (string, error) {
	if vehicleNumber == "" {
		return "", ErrInvalidVehicleNumber
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, ok := pl.vehicles[vehicleNumber]; ok {
		return "", fmt.Errorf("%w: %s", ErrDuplicateVehicle, vehicleNumber)
	}

	for _, level := range pl.levels {
		slot := level.FindAvailable(vehicleType)
		if slot == nil {
			continue
		}
		if err := slot.Assign(NewVehicle(vehicleNumber, vehicleType, pl.now())); err != nil {
			return "", err
		}
		pl.vehicles[vehicleNumber] = slot
		return slot.ID, nil
	}

	return "", fmt.Errorf("%w: %s", ErrLotFull, vehicleType)
}

func (pl *ParkingLot) Unpark(vehicleNumber string) (*Receipt, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.vehicles[vehicleNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleNumber)
	}

	vehicle, err := slot.Release()
	if err != nil {
		return nil, err
	}
	delete(pl.vehicles, vehicleNumber)

	exit := pl.now()
	duration := exit.Sub(vehicle.EntryTime)

	return &Receipt{
		TicketID:      vehicle.TicketID,
		VehicleNumber: vehicle.Number,
		VehicleType:   vehicle.Type,
		LevelID:       pl.slotLvl[slot],
		SlotID:        slot.ID,
		EntryTime:     vehicle.EntryTime,
		ExitTime:      exit,
		Duration:      duration,
		BilledHours:   BilledHours(duration),
		Fee:           pl.CalculateFee(vehicle.Type, duration),
	}, nil
}

// CalculateFee prices a stay of d with the lot's rate table and fallback rate.
func (pl *ParkingLot) CalculateFee(vehicleType VehicleType, d time.Duration) int {
	return pl.Rate(vehicleType) * int(BilledHours(d))
}

// Rate is the hourly rate charged for vehicleType.
func (pl *ParkingLot) Rate(vehicleType VehicleType) int {
	return pl.rates.RateOr(vehicleType, pl.defaultRate)
}

func (pl *ParkingLot) Rates() RateTable {
	rates := make(RateTable, len(pl.rates))
	for t, r := range pl.rates {
		rates[t] = r
	}
	return rates
}

// Status lists every slot, levels in configuration order and slots in
// construction order.
func (pl *ParkingLot) Status() []SlotStatus {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	statuses := make([]SlotStatus, 0, pl.capacity)
	for _, level := range pl.levels {
		statuses = append(statuses, level.Status()...)
	}
	return statuses
}

func (pl *ParkingLot) GetSlotByVehicleNumber(vehicleNumber string) (SlotStatus, error) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	slot, ok := pl.vehicles[vehicleNumber]
	if !ok {
		return SlotStatus{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, vehicleNumber)
	}
	return SlotStatus{
		LevelID:       pl.slotLvl[slot],
		SlotID:        slot.ID,
		Type:          slot.Type,
		Occupied:      true,
		VehicleNumber: vehicleNumber,
	}, nil
}

func (pl *ParkingLot) Availability() []Availability {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	var result []Availability
	for _, level := range pl.levels {
		result = append(result, level.Availability()...)
	}
	return result
}

func (pl *ParkingLot) LevelIDs() []string {
	ids := make([]string, len(pl.levels))
	for i, level := range pl.levels {
		ids[i] = level.ID
	}
	return ids
}

func (pl *ParkingLot) Capacity() int {
	return pl.capacity
}

// Occupied is the number of parked vehicles.
func (pl *ParkingLot) Occupied() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.vehicles)
}
