package booking

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	"stayhub/internal/app/middleware"
	"stayhub/internal/app/outbox"
	"stayhub/internal/app/uow"
	"stayhub/internal/domain/availability"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/clock"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	BookingID       string `json:"booking_id"`
	ListingID       string `json:"listing_id" validate:"required"`
	GuestID         string `json:"guest_id" validate:"required"`
	CheckIn         string `json:"check_in" validate:"required"`
	CheckOut        string `json:"check_out" validate:"required"`
	Adults          int    `json:"adults" validate:"min=1"`
	Children        int    `json:"children"`
	SpecialRequests string `json:"special_requests"`
	IdempotencyKeyV string `json:"-"`
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) ActorID() string { return c.GuestID }

// IdempotencyKey is scoped to the guest so two users cannot collide on a client key.
func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c CreateBookingCommand) LockKey() string { return ListingLockKey(domainlistings.ListingID(c.ListingID)) }

// ListingLockKey names the lock serializing bookings of one listing.
func ListingLockKey(id domainlistings.ListingID) string {
	return "listing:" + string(id)
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	unit, execCtx, finish, err := uow.Current(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	result, err := h.create(execCtx, unit, cmd)
	if finish != nil {
		err = finish(err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h *CreateBookingHandler) create(ctx context.Context, unit uow.UnitOfWork, cmd CreateBookingCommand) (*dto.Booking, error) {
	req := domainbooking.Request{
		ListingID:    domainlistings.ListingID(cmd.ListingID),
		GuestID:      cmd.GuestID,
		CheckInText:  cmd.CheckIn,
		CheckOutText: cmd.CheckOut,
		Guests: domainbooking.Guests{
			Adults:   cmd.Adults,
			Children: cmd.Children,
		},
		SpecialRequests: cmd.SpecialRequests,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	listing, err := unit.Listings().ByID(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	now := clock.OrSystem(h.Clock).Now()
	draft, err := domainbooking.Admit(listing, req, now)
	if err != nil {
		return nil, err
	}

	checker := availability.NewChecker(unit.Bookings())
	conflict, err := checker.FindConflict(ctx, listing.ID, draft.Range, "")
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		h.logger().Debug("booking rejected by availability check",
			"listing_id", listing.ID, "guest_id", cmd.GuestID, "conflicting_booking_id", conflict.ID)
		return nil, domainbooking.ErrConflict
	}

	id := cmd.BookingID
	if id == "" {
		id = uuid.NewString()
	}
	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		Draft:     draft,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Create(ctx, booking); err != nil {
		if errors.Is(err, domainbooking.ErrConflict) {
			h.logger().Info("booking lost write race", "listing_id", listing.ID, "booking_id", booking.ID)
		}
		return nil, err
	}

	if err := unit.Listings().IncrementBookings(ctx, listing.ID); err != nil {
		h.logger().Warn("listing booking counter not updated", "listing_id", listing.ID, "error", err)
	}

	if err := outbox.RecordPending(ctx, h.Outbox, h.encoder(), booking); err != nil {
		return nil, err
	}

	h.logger().Info("booking created",
		"booking_id", booking.ID, "listing_id", listing.ID, "guest_id", booking.GuestID,
		"host_id", booking.HostID, "nights", booking.Nights, "total", booking.Pricing.Total.Amount)

	out := dto.MapBooking(booking, listing)
	return &out, nil
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *CreateBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
var _ middleware.LockedCommand = CreateBookingCommand{}
