package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"stayhub/internal/app/dto"
	"stayhub/internal/app/queries"
	"stayhub/internal/app/uow"
	"stayhub/internal/domain/availability"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/failure"
)

const (
	checkAvailabilityKey = "booking.availability"
	getBookingKey        = "booking.get"
	listBookingsKey      = "booking.list"
)

const (
	RoleGuest = "guest"
	RoleHost  = "host"
)

type CheckAvailabilityQuery struct {
	ListingID string    `json:"listing_id" validate:"required"`
	CheckIn   time.Time `json:"check_in" validate:"required"`
	CheckOut  time.Time `json:"check_out" validate:"required"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type GetBookingQuery struct {
	BookingID string `json:"booking_id" validate:"required"`
	Actor     string `json:"actor_id" validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) ActorID() string { return q.Actor }

type ListBookingsQuery struct {
	Actor  string `json:"actor_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=guest host"`
	Status string `json:"status"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

func (q ListBookingsQuery) ActorID() string { return q.Actor }

// QueryHandler serves the read side of bookings. None of its operations lock or write.
type QueryHandler struct {
	UoWFactory   uow.UoWFactory
	DefaultLimit int
	MaxLimit     int
	Logger       *slog.Logger
}

func (h *QueryHandler) CheckAvailability(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	stay, err := daterange.NewDays(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, failure.Wrap(failure.KindValidation, err, "check-out must be after check-in")
	}
	unit, execCtx, finish, err := uow.Current(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Availability{}, err
	}
	if finish != nil {
		defer func() { _ = finish(nil) }()
	}

	listingID := domainlistings.ListingID(strings.TrimSpace(q.ListingID))
	if _, err := unit.Listings().ByID(execCtx, listingID); err != nil {
		return dto.Availability{}, err
	}
	available, err := availability.NewChecker(unit.Bookings()).IsAvailable(execCtx, listingID, stay, "")
	if err != nil {
		return dto.Availability{}, err
	}
	return dto.Availability{
		ListingID: string(listingID),
		CheckIn:   stay.CheckIn.Format(dto.DateLayout),
		CheckOut:  stay.CheckOut.Format(dto.DateLayout),
		Nights:    stay.Nights(),
		Available: available,
	}, nil
}

// Get returns a booking to its guest or host.
func (h *QueryHandler) Get(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, finish, err := uow.Current(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Booking{}, err
	}
	if finish != nil {
		defer func() { _ = finish(nil) }()
	}

	booking, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if !booking.IsParticipant(q.Actor) {
		return dto.Booking{}, failure.Forbidden("you are not a party to this booking")
	}
	listing := loadListing(execCtx, unit.Listings(), booking.ListingID, nil, h.logger())
	return dto.MapBooking(booking, listing), nil
}

// List pages through the caller's bookings as guest (default) or as host, newest first.
func (h *QueryHandler) List(ctx context.Context, q ListBookingsQuery) (dto.Page[dto.Booking], error) {
	filter := domainbooking.ListFilter{}
	switch strings.ToLower(strings.TrimSpace(q.Role)) {
	case "", RoleGuest:
		filter.GuestID = q.Actor
	case RoleHost:
		filter.HostID = domainlistings.HostID(q.Actor)
	default:
		return dto.Page[dto.Booking]{}, failure.Validation("role must be guest or host")
	}
	if strings.TrimSpace(q.Status) != "" {
		status, err := domainbooking.ParseStatus(q.Status)
		if err != nil {
			return dto.Page[dto.Booking]{}, err
		}
		filter.Status = status
	}
	page := dto.NormalizePage(q.Page, q.Limit, h.DefaultLimit, h.MaxLimit)
	filter.Offset = page.Offset()
	filter.Limit = page.Limit

	unit, execCtx, finish, err := uow.Current(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Page[dto.Booking]{}, err
	}
	if finish != nil {
		defer func() { _ = finish(nil) }()
	}

	bookings, total, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.Page[dto.Booking]{}, err
	}
	cache := make(map[domainlistings.ListingID]*domainlistings.Listing)
	items := make([]dto.Booking, 0, len(bookings))
	for _, b := range bookings {
		listing := loadListing(execCtx, unit.Listings(), b.ListingID, cache, h.logger())
		items = append(items, dto.MapBooking(b, listing))
	}
	h.logger().Debug("bookings listed", "actor_id", q.Actor, "role", q.Role, "count", len(items), "total", total)
	return dto.NewPage(items, page, total), nil
}

func (h *QueryHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// loadListing fetches the listing shown next to a booking. A missing listing is not an error.
func loadListing(
	ctx context.Context,
	dir domainlistings.Directory,
	id domainlistings.ListingID,
	cache map[domainlistings.ListingID]*domainlistings.Listing,
	logger *slog.Logger,
) *domainlistings.Listing {
	if cached, ok := cache[id]; ok {
		return cached
	}
	listing, err := dir.ByID(ctx, id)
	if err != nil {
		logger.Warn("listing snapshot missing for booking", "listing_id", id, "error", err)
		listing = nil
	}
	if cache != nil {
		cache[id] = listing
	}
	return listing
}

var (
	_ queries.HandlerFunc[CheckAvailabilityQuery, dto.Availability] = (*QueryHandler)(nil).CheckAvailability
	_ queries.HandlerFunc[GetBookingQuery, dto.Booking]             = (*QueryHandler)(nil).Get
	_ queries.HandlerFunc[ListBookingsQuery, dto.Page[dto.Booking]] = (*QueryHandler)(nil).List
)
