package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const shellHelp = `Commands:
  park <vehicle_number> <Car|Bike|Truck>
  unpark <vehicle_number>
  status
  find <vehicle_number>
  fee <Car|Bike|Truck> <duration, e.g. 90m>
  help
  exit`

// Shell is the operator console. It reads one command per line.
type Shell struct {
	parkingLot *InstrumentedParkingLot
	telemetry  *TelemetryProvider
	scanner    *bufio.Scanner
	out        io.Writer
}

func NewShell(parkingLot *InstrumentedParkingLot, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		parkingLot: parkingLot,
		telemetry:  telemetry,
		scanner:    bufio.NewScanner(in),
		out:        out,
	}
}

// Run processes commands until input ends, exit is entered or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		done := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if done {
			break
		}
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) bool {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "park":
		s.handlePark(ctx, parts)
	case "unpark":
		s.handleUnpark(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "find":
		s.handleFind(ctx, parts)
	case "fee":
		s.handleFee(ctx, parts)
	case "help":
		s.println(shellHelp)
	case "exit", "quit":
		s.println("Exiting...")
		return true
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
	return false
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.park_command")
	defer span.End()

	if len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: park <vehicle_number> <Car|Bike|Truck>")
		return
	}

	vehicleNumber := parts[1]
	vehicleType, err := ParseVehicleType(parts[2])
	if err != nil {
		span.RecordError(err)
		span.AddEvent("invalid_vehicle_type")
		s.println("Invalid vehicle type.")
		return
	}

	slotID, err := s.parkingLot.Park(ctx, vehicleNumber, vehicleType)
	switch {
	case errors.Is(err, ErrLotFull):
		span.AddEvent("parking_full")
		s.printf("Parking Full for %s\n", vehicleType)
		return
	case errors.Is(err, ErrDuplicateVehicle):
		span.AddEvent("duplicate_vehicle")
		s.printf("Vehicle %s is already parked\n", vehicleNumber)
		return
	case err != nil:
		span.AddEvent("parking_failed")
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("parking_successful", trace.WithAttributes(
		attribute.String("allocated_slot", slotID),
	))
	s.printf("Vehicle %s parked at slot %s\n", vehicleNumber, slotID)
}

func (s *Shell) handleUnpark(ctx context.Context, parts []string) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.unpark_command")
	defer span.End()

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: unpark <vehicle_number>")
		return
	}

	receipt, err := s.parkingLot.Unpark(ctx, parts[1])
	if errors.Is(err, ErrVehicleNotFound) {
		span.AddEvent("vehicle_not_found")
		s.println("Vehicle not found!")
		return
	}
	if err != nil {
		span.AddEvent("unpark_failed")
		s.printf("Error: %s\n", err.Error())
		return
	}

	span.AddEvent("unpark_successful")
	s.printf("Vehicle %s unparked from slot %s\n", receipt.VehicleNumber, receipt.SlotID)
	s.printf("Duration: %s | Parking Fee: $%d\n", receipt.Duration.Round(time.Second), receipt.Fee)
}

func (s *Shell) handleStatus(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.status_command")
	defer span.End()

	statuses := s.parkingLot.Status(ctx)
	span.AddEvent("status_retrieved")

	byLevel := make(map[string][]SlotStatus)
	for _, st := range statuses {
		byLevel[st.LevelID] = append(byLevel[st.LevelID], st)
	}

	s.println("=== Parking Lot Status ===")
	for _, level := range s.parkingLot.LevelIDs() {
		s.printf("Level %s:\n", level)
		for _, st := range byLevel[level] {
			s.printf("  Slot %s (%s): %s\n", st.SlotID, st.Type, st.Summary())
		}
	}
}

func (s *Shell) handleFind(ctx context.Context, parts []string) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.find_command")
	defer span.End()

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: find <vehicle_number>")
		return
	}

	status, err := s.parkingLot.GetSlotByVehicleNumber(ctx, parts[1])
	if err != nil {
		span.AddEvent("vehicle_not_found")
		s.println("Not found")
		return
	}

	span.AddEvent("vehicle_found")
	s.printf("%s (level %s)\n", status.SlotID, status.LevelID)
}

func (s *Shell) handleFee(ctx context.Context, parts []string) {
	tracer := s.telemetry.Tracer()
	_, span := tracer.Start(ctx, "shell.fee_command")
	defer span.End()

	if len(parts) != 3 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: fee <Car|Bike|Truck> <duration>")
		return
	}

	vehicleType, err := ParseVehicleType(parts[1])
	if err != nil {
		span.RecordError(err)
		s.println("Invalid vehicle type.")
		return
	}

	d, err := time.ParseDuration(parts[2])
	if err != nil || d < 0 {
		span.RecordError(fmt.Errorf("invalid duration: %s", parts[2]))
		s.println("Invalid duration")
		return
	}

	fee := s.parkingLot.CalculateFee(vehicleType, d)
	span.SetAttributes(attribute.Int("fee", fee))
	s.printf("Fee for %s over %s: $%d (%d billed hours)\n", vehicleType, d, fee, BilledHours(d))
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
