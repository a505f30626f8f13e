package parking

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func referenceLayout() []LevelConfig {
	return []LevelConfig{
		{ID: "L1", Slots: []SlotConfig{{Car, 3}, {Bike, 2}, {Truck, 1}}},
		{ID: "L2", Slots: []SlotConfig{{Car, 2}, {Bike, 3}, {Truck, 1}}},
	}
}

func occupiedSlots(pl *ParkingLot) int {
	n := 0
	for _, s := range pl.Status() {
		if s.Occupied {
			n++
		}
	}
	return n
}

func TestNewParkingLot(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	assert.Equal(t, 12, pl.Capacity())
	assert.Equal(t, 0, pl.Occupied())
	assert.Equal(t, []string{"L1", "L2"}, pl.LevelIDs())

	status := pl.Status()
	require.Len(t, status, 12)
	assert.Equal(t, "L1-C-1", status[0].SlotID)
	assert.Equal(t, "L2-T-1", status[11].SlotID)
	for _, s := range status {
		assert.False(t, s.Occupied, s.SlotID)
	}
}

func TestNewParkingLotRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name    string
		configs []LevelConfig
		wantErr error
	}{
		{"no levels", nil, ErrInvalidLayout},
		{"empty level id", []LevelConfig{{ID: ""}}, ErrInvalidLayout},
		{"duplicate level id", []LevelConfig{{ID: "L1"}, {ID: "L1"}}, ErrInvalidLayout},
		{"negative count", []LevelConfig{{ID: "L1", Slots: []SlotConfig{{Car, -1}}}}, ErrInvalidLayout},
		{"unknown type", []LevelConfig{{ID: "L1", Slots: []SlotConfig{{"Bus", 1}}}}, ErrUnknownVehicleType},
		{"tag collision", []LevelConfig{{ID: "L1", Slots: []SlotConfig{{Car, 2}, {Car, 1}}}}, ErrDuplicateSlotID},
		{"empty level is allowed", []LevelConfig{{ID: "L1"}, {ID: "L2", Slots: []SlotConfig{{Car, 1}}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParkingLot(tt.configs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParkingLotScenarioSingleCarSlot(t *testing.T) {
	pl, err := NewParkingLot([]LevelConfig{{ID: "L1", Slots: []SlotConfig{{Car, 1}}}})
	require.NoError(t, err)

	slotID, err := pl.Park("A1", Car)
	require.NoError(t, err)
	assert.Equal(t, "L1-C-1", slotID)

	_, err = pl.Park("A2", Car)
	assert.ErrorIs(t, err, ErrLotFull)

	receipt, err := pl.Unpark("A1")
	require.NoError(t, err)
	assert.Equal(t, "L1-C-1", receipt.SlotID)
	assert.Equal(t, "L1", receipt.LevelID)
	assert.Equal(t, 20, receipt.Fee)
	assert.Equal(t, int64(1), receipt.BilledHours)

	slotID, err = pl.Park("A2", Car)
	require.NoError(t, err)
	assert.Equal(t, "L1-C-1", slotID, "slot is reused")
}

func TestParkingLotUnparkUnknown(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	receipt, err := pl.Unpark("ghost")

	assert.ErrorIs(t, err, ErrVehicleNotFound)
	assert.Nil(t, receipt)
	assert.Equal(t, 0, pl.Occupied())
}

func TestParkingLotRejectsDuplicate(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	_, err = pl.Park("KA01", Car)
	require.NoError(t, err)

	_, err = pl.Park("KA01", Bike)
	assert.ErrorIs(t, err, ErrDuplicateVehicle)
	assert.Equal(t, 1, pl.Occupied())
	assert.Equal(t, 1, occupiedSlots(pl))

	status, err := pl.GetSlotByVehicleNumber("KA01")
	require.NoError(t, err)
	assert.Equal(t, "L1-C-1", status.SlotID)
}

func TestParkingLotRejectsEmptyNumber(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	_, err = pl.Park("", Car)
	assert.ErrorIs(t, err, ErrInvalidVehicleNumber)
}

func TestParkingLotPrefersEarliestLevel(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	var slots []string
	for i := range 5 {
		slotID, err := pl.Park(fmt.Sprintf("CAR-%d", i), Car)
		require.NoError(t, err)
		slots = append(slots, slotID)
	}

	assert.Equal(t, []string{"L1-C-1", "L1-C-2", "L1-C-3", "L2-C-1", "L2-C-2"}, slots)

	_, err = pl.Park("CAR-5", Car)
	assert.ErrorIs(t, err, ErrLotFull)

	_, err = pl.Unpark("CAR-1")
	require.NoError(t, err)

	slotID, err := pl.Park("LATE", Car)
	require.NoError(t, err)
	assert.Equal(t, "L1-C-2", slotID, "freed slot on the earlier level wins")
}

func TestParkingLotFullIsPerType(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	_, err = pl.Park("T1", Truck)
	require.NoError(t, err)
	slotID, err := pl.Park("T2", Truck)
	require.NoError(t, err)
	assert.Equal(t, "L2-T-1", slotID)

	before := pl.Status()
	_, err = pl.Park("T3", Truck)
	assert.ErrorIs(t, err, ErrLotFull)
	assert.Equal(t, before, pl.Status(), "a failed park changes nothing")

	_, err = pl.Park("B1", Bike)
	assert.NoError(t, err)
}

func TestParkingLotRoundTripIdentity(t *testing.T) {
	clock := newFakeClock()
	pl, err := NewParkingLot(referenceLayout(), WithClock(clock.Now))
	require.NoError(t, err)

	_, err = pl.Park("KA01", Bike)
	require.NoError(t, err)

	var ticket string
	for _, slot := range pl.levels[0].Slots() {
		if v := slot.Vehicle(); v != nil {
			ticket = v.TicketID
		}
	}

	entry := clock.Now()
	clock.Advance(3*time.Hour + 10*time.Minute)

	receipt, err := pl.Unpark("KA01")
	require.NoError(t, err)

	assert.Equal(t, ticket, receipt.TicketID)
	assert.Equal(t, "KA01", receipt.VehicleNumber)
	assert.Equal(t, Bike, receipt.VehicleType)
	assert.Equal(t, entry, receipt.EntryTime)
	assert.Equal(t, entry.Add(3*time.Hour+10*time.Minute), receipt.ExitTime)
	assert.Equal(t, 3*time.Hour+10*time.Minute, receipt.Duration)
	assert.Equal(t, int64(3), receipt.BilledHours)
	assert.Equal(t, 30, receipt.Fee)
}

func TestParkingLotImmediateUnparkBillsOneHour(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	for _, vt := range VehicleTypes {
		number := "RT-" + vt.String()
		_, err := pl.Park(number, vt)
		require.NoError(t, err)

		receipt, err := pl.Unpark(number)
		require.NoError(t, err)
		assert.Less(t, receipt.Duration, time.Minute)
		assert.Equal(t, DefaultRates().Rate(vt), receipt.Fee)
	}
}

func TestParkingLotTruckHourBoundary(t *testing.T) {
	clock := newFakeClock()
	pl, err := NewParkingLot(referenceLayout(), WithClock(clock.Now))
	require.NoError(t, err)

	_, err = pl.Park("T-7200", Truck)
	require.NoError(t, err)
	_, err = pl.Park("T-7199", Truck)
	require.NoError(t, err)

	clock.Advance(7199 * time.Second)
	receipt, err := pl.Unpark("T-7199")
	require.NoError(t, err)
	assert.Equal(t, 30, receipt.Fee)

	clock.Advance(time.Second)
	receipt, err = pl.Unpark("T-7200")
	require.NoError(t, err)
	assert.Equal(t, 60, receipt.Fee)
}

func TestParkingLotCustomRates(t *testing.T) {
	clock := newFakeClock()
	pl, err := NewParkingLot(referenceLayout(), WithClock(clock.Now), WithRates(RateTable{Car: 5}))
	require.NoError(t, err)

	_, err = pl.Park("C1", Car)
	require.NoError(t, err)
	_, err = pl.Park("B1", Bike)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	receipt, err := pl.Unpark("C1")
	require.NoError(t, err)
	assert.Equal(t, 10, receipt.Fee)

	receipt, err = pl.Unpark("B1")
	require.NoError(t, err)
	assert.Equal(t, 2*DefaultRate, receipt.Fee)

	assert.Equal(t, RateTable{Car: 5}, pl.Rates())
	assert.Equal(t, 15, pl.CalculateFee(Car, 3*time.Hour))
}

func TestParkingLotIndexMatchesOccupancy(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	ops := []struct {
		park   bool
		number string
		vt     VehicleType
	}{
		{true, "a", Car}, {true, "b", Bike}, {true, "c", Truck},
		{true, "d", Truck}, {true, "e", Truck}, {false, "b", ""},
		{false, "ghost", ""}, {true, "a", Car}, {true, "f", Bike},
		{false, "a", ""}, {false, "a", ""}, {true, "g", Car},
	}

	for _, op := range ops {
		if op.park {
			pl.Park(op.number, op.vt)
		} else {
			pl.Unpark(op.number)
		}
		assert.Equal(t, pl.Occupied(), occupiedSlots(pl))
		assert.Equal(t, len(pl.vehicles), occupiedSlots(pl))
		for number, slot := range pl.vehicles {
			require.True(t, slot.IsOccupied(), "index references free slot %s", slot.ID)
			assert.Equal(t, number, slot.Vehicle().Number)
		}
	}
}

func TestParkingLotConcurrentPark(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pl.Park(fmt.Sprintf("C-%d", i), Car)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	parked, full := 0, 0
	for err := range results {
		switch {
		case err == nil:
			parked++
		default:
			assert.ErrorIs(t, err, ErrLotFull)
			full++
		}
	}

	assert.Equal(t, 5, parked)
	assert.Equal(t, 15, full)
	assert.Equal(t, 5, occupiedSlots(pl))
}

func TestParkingLotAvailability(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	_, err = pl.Park("B1", Bike)
	require.NoError(t, err)

	avail := pl.Availability()
	require.Len(t, avail, 6)
	assert.Equal(t, Availability{LevelID: "L1", Type: Bike, Total: 2, Occupied: 1}, avail[1])
	assert.Equal(t, Availability{LevelID: "L2", Type: Bike, Total: 3, Occupied: 0}, avail[4])
}

func TestParkingLotGetSlotByVehicleNumber(t *testing.T) {
	pl, err := NewParkingLot(referenceLayout())
	require.NoError(t, err)

	for _, n := range []string{"T1", "T2"} {
		_, err := pl.Park(n, Truck)
		require.NoError(t, err)
	}

	status, err := pl.GetSlotByVehicleNumber("T2")
	require.NoError(t, err)
	assert.Equal(t, SlotStatus{LevelID: "L2", SlotID: "L2-T-1", Type: Truck, Occupied: true, VehicleNumber: "T2"}, status)

	_, err = pl.GetSlotByVehicleNumber("NOTFOUND")
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestParkingLotDefaultRate(t *testing.T) {
	clock := newFakeClock()
	pl, err := NewParkingLot(referenceLayout(), WithClock(clock.Now),
		WithRates(RateTable{Car: 5}), WithDefaultRate(12))
	require.NoError(t, err)

	assert.Equal(t, 5, pl.Rate(Car))
	assert.Equal(t, 12, pl.Rate(Truck))
	assert.Equal(t, 36, pl.CalculateFee(Bike, 3*time.Hour))

	_, err = pl.Park("T1", Truck)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	receipt, err := pl.Unpark("T1")
	require.NoError(t, err)
	assert.Equal(t, 24, receipt.Fee)
}

func TestNewParkingLotRejectsNegativeRates(t *testing.T) {
	_, err := NewParkingLot(referenceLayout(), WithDefaultRate(-1))
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewParkingLot(referenceLayout(), WithRates(RateTable{Bike: -3}))
	assert.ErrorIs(t, err, ErrInvalidRate)
}
