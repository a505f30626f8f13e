package parking

import "errors"

var (
	// ErrLotFull is returned when no level has a free slot of the requested type.
	ErrLotFull = errors.New("parking: no free slot for vehicle type")

	// ErrVehicleNotFound is returned when the vehicle number is not parked.
	ErrVehicleNotFound = errors.New("parking: vehicle not found")

	// ErrDuplicateVehicle is returned when the vehicle number is already parked.
	ErrDuplicateVehicle = errors.New("parking: vehicle already parked")

	ErrUnknownVehicleType   = errors.New("parking: unknown vehicle type")
	ErrInvalidVehicleNumber = errors.New("parking: vehicle number is required")

	ErrSlotOccupied = errors.New("parking: slot is already occupied")
	ErrSlotFree     = errors.New("parking: slot is already free")

	// ErrInvalidLayout is returned by NewParkingLot for malformed level configs.
	ErrInvalidLayout = errors.New("parking: invalid level layout")

	// ErrInvalidRate is returned by NewParkingLot for negative hourly rates.
	ErrInvalidRate = errors.New("parking: invalid rate")

	// ErrDuplicateSlotID is returned when two slots in a layout would share an id,
	// e.g. two types with the same tag on one level.
	ErrDuplicateSlotID = errors.New("parking: duplicate slot id")
)
