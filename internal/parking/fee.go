package parking

import "time"

// DefaultRate is charged per billed hour for types missing from a RateTable.
const DefaultRate = 15

// RateTable maps a vehicle type to its price per billed hour.
type RateTable map[VehicleType]int

func DefaultRates() RateTable {
	return RateTable{
		Car:   20,
		Bike:  10,
		Truck: 30,
	}
}

func (r RateTable) Rate(vehicleType VehicleType) int {
	return r.RateOr(vehicleType, DefaultRate)
}

// RateOr returns the rate for vehicleType, or fallback when the table has none.
func (r RateTable) RateOr(vehicleType VehicleType, fallback int) int {
	if rate, ok := r[vehicleType]; ok {
		return rate
	}
	return fallback
}

// BilledHours truncates d to whole seconds, then to whole hours, with a
// one-hour minimum. Stays over a day are billed by their total hours.
func BilledHours(d time.Duration) int64 {
	seconds := int64(d / time.Second)
	return max(1, seconds/3600)
}

func (r RateTable) CalculateFee(vehicleType VehicleType, d time.Duration) int {
	return r.Rate(vehicleType) * int(BilledHours(d))
}

// CalculateFee prices a stay with the default rate table.
func CalculateFee(vehicleType VehicleType, d time.Duration) int {
	return DefaultRates().CalculateFee(vehicleType, d)
}
