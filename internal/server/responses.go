package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/base-14/examples/go/parking-levels/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type SlotConfigRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type LevelConfigRequest struct {
	ID    string              `json:"id"`
	Slots []SlotConfigRequest `json:"slots"`
}

type ParkingLotCreateRequest struct {
	Levels []LevelConfigRequest `json:"levels"`
}

type ParkVehicleRequest struct {
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
}

type UnparkVehicleRequest struct {
	VehicleNumber string `json:"vehicle_number"`
}

type ParkVehicleResponse struct {
	SlotID        string `json:"slot_id"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
}

type ReceiptResponse struct {
	TicketID        string    `json:"ticket_id"`
	VehicleNumber   string    `json:"vehicle_number"`
	VehicleType     string    `json:"vehicle_type"`
	LevelID         string    `json:"level_id"`
	SlotID          string    `json:"slot_id"`
	EntryTime       time.Time `json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Duration        string    `json:"duration"`
	BilledHours     int64     `json:"billed_hours"`
	Fee             int       `json:"fee"`
}

type SlotStatus struct {
	SlotID        string `json:"slot_id"`
	Type          string `json:"type"`
	Occupied      bool   `json:"occupied"`
	VehicleNumber string `json:"vehicle_number,omitempty"`
	Summary       string `json:"summary"`
}

type TypeAvailability struct {
	Type      string `json:"type"`
	Total     int    `json:"total"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
}

type LevelStatus struct {
	LevelID      string             `json:"level_id"`
	Slots        []SlotStatus       `json:"slots"`
	Availability []TypeAvailability `json:"availability"`
}

type StatusResponse struct {
	Capacity  int           `json:"capacity"`
	Occupied  int           `json:"occupied"`
	Available int           `json:"available"`
	Levels    []LevelStatus `json:"levels"`
}

type FindVehicleResponse struct {
	LevelID       string `json:"level_id"`
	SlotID        string `json:"slot_id"`
	VehicleNumber string `json:"vehicle_number"`
	VehicleType   string `json:"vehicle_type"`
}

type FeeQuoteResponse struct {
	VehicleType     string `json:"vehicle_type"`
	DurationSeconds int64  `json:"duration_seconds"`
	Rate            int    `json:"rate"`
	BilledHours     int64  `json:"billed_hours"`
	Fee             int    `json:"fee"`
}

func newReceiptResponse(r *parking.Receipt) ReceiptResponse {
	return ReceiptResponse{
		TicketID:        r.TicketID,
		VehicleNumber:   r.VehicleNumber,
		VehicleType:     r.VehicleType.String(),
		LevelID:         r.LevelID,
		SlotID:          r.SlotID,
		EntryTime:       r.EntryTime,
		ExitTime:        r.ExitTime,
		DurationSeconds: int64(r.Duration / time.Second),
		Duration:        r.Duration.Round(time.Second).String(),
		BilledHours:     r.BilledHours,
		Fee:             r.Fee,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
