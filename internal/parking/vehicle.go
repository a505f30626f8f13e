package parking

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type VehicleType string

const (
	Car   VehicleType = "Car"
	Bike  VehicleType = "Bike"
	Truck VehicleType = "Truck"
)

// VehicleTypes lists the supported types in the reference layout order.
var VehicleTypes = []VehicleType{Car, Bike, Truck}

// ParseVehicleType matches s against the supported types, ignoring case.
func ParseVehicleType(s string) (VehicleType, error) {
	s = strings.TrimSpace(s)
	for _, t := range VehicleTypes {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVehicleType, s)
}

func (t VehicleType) String() string {
	return string(t)
}

// Tag is the single-character marker used in slot ids.
func (t VehicleType) Tag() string {
	if t == "" {
		return ""
	}
	return t.String()[:1]
}

type Vehicle struct {
	TicketID  string
	Number    string
	Type      VehicleType
	EntryTime time.Time
}

func NewVehicle(number string, vehicleType VehicleType, entryTime time.Time) *Vehicle {
	return &Vehicle{
		TicketID:  uuid.New().String(),
		Number:    number,
		Type:      vehicleType,
		EntryTime: entryTime,
	}
}
