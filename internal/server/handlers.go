package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/base-14/examples/go/parking-levels/internal/logging"
	"github.com/base-14/examples/go/parking-levels/internal/parking"
)

type Handler struct {
	parkingLot  *parking.InstrumentedParkingLot
	telemetry   *parking.TelemetryProvider
	lotOptions  []parking.Option
	serviceName string
	mu          sync.RWMutex
}

// NewHandler serves parkingLot. lotOptions are reused when the layout is
// replaced through CreateParkingLot.
func NewHandler(parkingLot *parking.InstrumentedParkingLot, telemetry *parking.TelemetryProvider, serviceName string, lotOptions ...parking.Option) *Handler {
	return &Handler{
		parkingLot:  parkingLot,
		telemetry:   telemetry,
		lotOptions:  lotOptions,
		serviceName: serviceName,
	}
}

func (h *Handler) lot() *parking.InstrumentedParkingLot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.parkingLot
}

// Availability reports the current lot's slot counts for the metrics collector.
func (h *Handler) Availability() []parking.Availability {
	return h.lot().Availability()
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkingLotCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configs := make([]parking.LevelConfig, 0, len(req.Levels))
	for _, l := range req.Levels {
		level := parking.LevelConfig{ID: l.ID}
		for _, s := range l.Slots {
			t, err := parking.ParseVehicleType(s.Type)
			if err != nil {
				WriteError(ctx, w, http.StatusBadRequest, err.Error())
				return
			}
			level.Slots = append(level.Slots, parking.SlotConfig{Type: t, Count: s.Count})
		}
		configs = append(configs, level)
	}

	parkingLot, err := parking.NewInstrumentedParkingLot(configs, h.telemetry, h.lotOptions...)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	previous := h.parkingLot
	h.parkingLot = parkingLot
	h.mu.Unlock()

	if previous != nil {
		previous.Close(ctx)
	}

	logging.Info(ctx, "parking lot replaced",
		"levels", len(configs),
		"capacity", parkingLot.Capacity(),
	)

	WriteSuccess(ctx, w, "Parking lot created successfully", map[string]any{
		"levels":   parkingLot.LevelIDs(),
		"capacity": parkingLot.Capacity(),
	})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ParkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.VehicleNumber == "" || req.VehicleType == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle number and vehicle type are required")
		return
	}

	vehicleType, err := parking.ParseVehicleType(req.VehicleType)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	slotID, err := h.lot().Park(ctx, req.VehicleNumber, vehicleType)
	switch {
	case errors.Is(err, parking.ErrLotFull), errors.Is(err, parking.ErrDuplicateVehicle):
		WriteError(ctx, w, http.StatusConflict, err.Error())
		return
	case err != nil:
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", ParkVehicleResponse{
		SlotID:        slotID,
		VehicleNumber: req.VehicleNumber,
		VehicleType:   vehicleType.String(),
	})
}

func (h *Handler) UnparkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UnparkVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.VehicleNumber == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle number is required")
		return
	}

	receipt, err := h.lot().Unpark(ctx, req.VehicleNumber)
	if errors.Is(err, parking.ErrVehicleNotFound) {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteSuccess(ctx, w, "Vehicle unparked successfully", newReceiptResponse(receipt))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parkingLot := h.lot()

	statuses := parkingLot.Status(ctx)
	availability := parkingLot.Availability()

	var levels []LevelStatus
	index := make(map[string]int)
	levelFor := func(id string) *LevelStatus {
		i, ok := index[id]
		if !ok {
			i = len(levels)
			index[id] = i
			levels = append(levels, LevelStatus{LevelID: id, Slots: []SlotStatus{}, Availability: []TypeAvailability{}})
		}
		return &levels[i]
	}

	for _, id := range parkingLot.LevelIDs() {
		levelFor(id)
	}

	occupied := 0
	for _, s := range statuses {
		if s.Occupied {
			occupied++
		}
		level := levelFor(s.LevelID)
		level.Slots = append(level.Slots, SlotStatus{
			SlotID:        s.SlotID,
			Type:          s.Type.String(),
			Occupied:      s.Occupied,
			VehicleNumber: s.VehicleNumber,
			Summary:       s.Summary(),
		})
	}

	for _, a := range availability {
		level := levelFor(a.LevelID)
		level.Availability = append(level.Availability, TypeAvailability{
			Type:      a.Type.String(),
			Total:     a.Total,
			Occupied:  a.Occupied,
			Available: a.Free(),
		})
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", StatusResponse{
		Capacity:  len(statuses),
		Occupied:  occupied,
		Available: len(statuses) - occupied,
		Levels:    levels,
	})
}

func (h *Handler) FindByVehicleNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vehicleNumber := chi.URLParam(r, "vehicleNumber")
	if vehicleNumber == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle number is required")
		return
	}

	status, err := h.lot().GetSlotByVehicleNumber(ctx, vehicleNumber)
	if err != nil {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}

	WriteSuccess(ctx, w, "Vehicle found", FindVehicleResponse{
		LevelID:       status.LevelID,
		SlotID:        status.SlotID,
		VehicleNumber: status.VehicleNumber,
		VehicleType:   status.Type.String(),
	})
}

// QuoteFee prices a hypothetical stay: ?type=Car&duration=90m (or seconds).
func (h *Handler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	vehicleType, err := parking.ParseVehicleType(query.Get("type"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := parseDuration(query.Get("duration"))
	if err != nil || d < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Duration must be a non-negative Go duration or number of seconds")
		return
	}

	parkingLot := h.lot()
	WriteSuccess(ctx, w, "Fee calculated", FeeQuoteResponse{
		VehicleType:     vehicleType.String(),
		DurationSeconds: int64(d / time.Second),
		Rate:            parkingLot.Rate(vehicleType),
		BilledHours:     parking.BilledHours(d),
		Fee:             parkingLot.CalculateFee(vehicleType, d),
	})
}

func parseDuration(s string) (time.Duration, error) {
	if seconds, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(s)
}
