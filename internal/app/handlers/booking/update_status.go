package booking

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	"stayhub/internal/domain/shared/clock"
	"stayhub/internal/domain/shared/failure"
)

const (
	cancelBookingKey = "booking.cancel"
	changeStatusKey  = "booking.change_status"
)

type CancelBookingCommand struct {
	BookingID string `json:"booking_id" validate:"required"`
	Actor     string `json:"actor_id" validate:"required"`
	Reason    string `json:"reason"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) ActorID() string { return c.Actor }

type ChangeStatusCommand struct {
	BookingID string `json:"booking_id" validate:"required"`
	Actor     string `json:"actor_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

func (c ChangeStatusCommand) Key() string { return changeStatusKey }

func (c ChangeStatusCommand) ActorID() string { return c.Actor }

// StatusHandler serves both the cancel and the host status-change commands.
type StatusHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Cancel may be performed by the guest or the host of the booking.
func (h *StatusHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	return h.mutate(ctx, domainbooking.BookingID(cmd.BookingID), func(b *domainbooking.Booking) error {
		if !b.IsParticipant(cmd.Actor) {
			return failure.Forbidden("only the guest or the host can cancel this booking")
		}
		return b.Cancel(cmd.Reason, h.now())
	})
}

// ChangeStatus is reserved for the host of the booking.
func (h *StatusHandler) ChangeStatus(ctx context.Context, cmd ChangeStatusCommand) (*dto.Booking, error) {
	next, err := domainbooking.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	return h.mutate(ctx, domainbooking.BookingID(cmd.BookingID), func(b *domainbooking.Booking) error {
		if !b.IsHost(cmd.Actor) {
			return failure.Forbidden("only the host can change the booking status")
		}
		return b.Transition(next, h.now())
	})
}

func (h *StatusHandler) mutate(ctx context.Context, id domainbooking.BookingID, apply func(b *domainbooking.Booking) error) (*dto.Booking, error) {
	unit, execCtx, finish, err := uow.Current(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	result, err := h.apply(execCtx, unit, id, apply)
	if finish != nil {
		err = finish(err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *StatusHandler) apply(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, apply func(b *domainbooking.Booking) error) (*dto.Booking, error) {
	booking, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := booking.Status
	if err := apply(booking); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return nil, err
	}
	if err := outbox.RecordPending(ctx, h.Outbox, h.encoder(), booking); err != nil {
		return nil, err
	}
	h.logger().Info("booking status changed", "booking_id", booking.ID, "listing_id", booking.ListingID,
		"from", from, "status", booking.Status)

	listing := loadListing(ctx, unit.Listings(), booking.ListingID, nil, h.logger())
	out := dto.MapBooking(booking, listing)
	return &out, nil
}

func (h *StatusHandler) now() time.Time {
	return clock.OrSystem(h.Clock).Now()
}

func (h *StatusHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *StatusHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ commands.HandlerFunc[CancelBookingCommand, *dto.Booking] = (*StatusHandler)(nil).Cancel
	_ commands.HandlerFunc[ChangeStatusCommand, *dto.Booking]  = (*StatusHandler)(nil).ChangeStatus
)
