package parking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/base-14/examples/go/parking-levels/internal/logging"
)

type InstrumentedParkingLot struct {
	*ParkingLot
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations   metric.Int64Counter
	unparkingOperations metric.Int64Counter
	occupancyGauge      metric.Int64UpDownCounter
	operationDuration   metric.Float64Histogram
	totalSlotsGauge     metric.Int64UpDownCounter
	feesTotal           metric.Int64Counter
	stayDuration        metric.Float64Histogram

	// gaugeMu guards the lot's contribution to the shared gauges.
	gaugeMu  sync.Mutex
	closed   bool
	reported int64
}

func NewInstrumentedParkingLot(configs []LevelConfig, telemetry *TelemetryProvider, opts ...Option) (*InstrumentedParkingLot, error) {
	baseParkingLot, err := NewParkingLot(configs, opts...)
	if err != nil {
		return nil, err
	}

	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	unparkingOperations, err := meter.Int64Counter("unparking_operations_total",
		metric.WithDescription("Total number of unparking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_slots",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	feesTotal, err := meter.Int64Counter("parking_fees_total",
		metric.WithDescription("Sum of fees charged on unpark"),
		metric.WithUnit("{currency}"))
	if err != nil {
		return nil, err
	}

	stayDuration, err := meter.Float64Histogram("parking_stay_duration_seconds",
		metric.WithDescription("Time vehicles spent parked"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ipl := &InstrumentedParkingLot{
		ParkingLot:          baseParkingLot,
		telemetry:           telemetry,
		parkingOperations:   parkingOperations,
		unparkingOperations: unparkingOperations,
		occupancyGauge:      occupancyGauge,
		operationDuration:   operationDuration,
		totalSlotsGauge:     totalSlotsGauge,
		feesTotal:           feesTotal,
		stayDuration:        stayDuration,
	}

	totalSlotsGauge.Add(context.Background(), int64(baseParkingLot.Capacity()))

	return ipl, nil
}

// Close retracts this lot's slots and occupancy from the shared gauges. Call
// it when the lot is replaced. A closed lot keeps working but no longer moves
// the gauges. Close is idempotent.
func (ipl *InstrumentedParkingLot) Close(ctx context.Context) {
	ipl.gaugeMu.Lock()
	defer ipl.gaugeMu.Unlock()

	if ipl.closed {
		return
	}
	ipl.closed = true
	ipl.totalSlotsGauge.Add(ctx, -int64(ipl.Capacity()))
	ipl.occupancyGauge.Add(ctx, -ipl.reported)
	ipl.reported = 0
}

func (ipl *InstrumentedParkingLot) addOccupancy(ctx context.Context, delta int64) {
	ipl.gaugeMu.Lock()
	defer ipl.gaugeMu.Unlock()

	if ipl.closed {
		return
	}
	ipl.reported += delta
	ipl.occupancyGauge.Add(ctx, delta)
}

func (ipl *InstrumentedParkingLot) Park(ctx context.Context, vehicleNumber string, vehicleType VehicleType) (string, error) {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.park",
		trace.WithAttributes(
			attribute.String("vehicle.number", vehicleNumber),
			attribute.String("vehicle.type", vehicleType.String()),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	slotID, err := ipl.ParkingLot.Park(vehicleNumber, vehicleType)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_type", vehicleType.String()),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", failureReason(err)),
		)
		logging.Warn(ctx, "park rejected",
			"vehicle_number", vehicleNumber,
			"vehicle_type", vehicleType.String(),
			"error", err.Error(),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.String("allocated_slot_id", slotID))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.String("slot_id", slotID),
		))
		ipl.addOccupancy(ctx, 1)
		logging.Info(ctx, "vehicle parked",
			"vehicle_number", vehicleNumber,
			"vehicle_type", vehicleType.String(),
			"slot_id", slotID,
		)
	}

	ipl.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return slotID, err
}

func (ipl *InstrumentedParkingLot) Unpark(ctx context.Context, vehicleNumber string) (*Receipt, error) {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.unpark",
		trace.WithAttributes(
			attribute.String("vehicle.number", vehicleNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	receipt, err := ipl.ParkingLot.Unpark(vehicleNumber)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "unpark"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", failureReason(err)),
		)
		logging.Warn(ctx, "unpark rejected",
			"vehicle_number", vehicleNumber,
			"error", err.Error(),
		)
	} else {
		typeAttr := attribute.String("vehicle_type", receipt.VehicleType.String())
		labels = append(labels, typeAttr, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.String("vehicle.type", receipt.VehicleType.String()),
			attribute.String("slot_id", receipt.SlotID),
			attribute.Int64("billed_hours", receipt.BilledHours),
			attribute.Int("fee", receipt.Fee),
		)
		span.AddEvent("slot_released")
		ipl.addOccupancy(ctx, -1)
		ipl.feesTotal.Add(ctx, int64(receipt.Fee), metric.WithAttributes(typeAttr))
		ipl.stayDuration.Record(ctx, receipt.Duration.Seconds(), metric.WithAttributes(typeAttr))
		logging.Info(ctx, "vehicle unparked",
			"vehicle_number", vehicleNumber,
			"slot_id", receipt.SlotID,
			"duration", receipt.Duration.String(),
			"fee", receipt.Fee,
		)
	}

	ipl.unparkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (ipl *InstrumentedParkingLot) Status(ctx context.Context) []SlotStatus {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.status")
	defer span.End()

	start := time.Now()

	span.AddEvent("retrieving_status")

	statuses := ipl.ParkingLot.Status()

	duration := time.Since(start).Seconds()

	occupied := 0
	for _, s := range statuses {
		if s.Occupied {
			occupied++
		}
	}

	span.SetAttributes(
		attribute.Int("occupied_slots_count", occupied),
		attribute.Int("total_capacity", ipl.Capacity()),
	)

	labels := []attribute.KeyValue{
		attribute.String("operation", "status"),
		attribute.String("status", "success"),
	}

	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return statuses
}

func (ipl *InstrumentedParkingLot) GetSlotByVehicleNumber(ctx context.Context, vehicleNumber string) (SlotStatus, error) {
	tracer := ipl.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "parking_lot.get_slot_by_vehicle_number",
		trace.WithAttributes(
			attribute.String("vehicle.number", vehicleNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("searching_by_vehicle_number")

	status, err := ipl.ParkingLot.GetSlotByVehicleNumber(vehicleNumber)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "get_slot_by_vehicle_number"),
	}

	if err != nil {
		span.AddEvent("vehicle_not_found")
		labels = append(labels, attribute.String("status", "not_found"))
	} else {
		span.SetAttributes(attribute.String("found_slot_id", status.SlotID))
		span.AddEvent("vehicle_found", trace.WithAttributes(
			attribute.String("slot_id", status.SlotID),
		))
		labels = append(labels, attribute.String("status", "found"))
	}

	ipl.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return status, err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrLotFull):
		return "full"
	case errors.Is(err, ErrDuplicateVehicle):
		return "duplicate"
	case errors.Is(err, ErrVehicleNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidVehicleNumber):
		return "invalid"
	default:
		return "error"
	}
}
