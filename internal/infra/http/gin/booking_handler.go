package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	bookingapp "stayhub/internal/app/handlers/booking"
	"stayhub/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHTTP interface {
	Create(c *gin.Context)
	Availability(c *gin.Context)
	ListMine(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	ChangeStatus(c *gin.Context)
}

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type guestsRequest struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type createBookingRequest struct {
	ListingID       string        `json:"listing_id"`
	CheckIn         string        `json:"check_in"`
	CheckOut        string        `json:"check_out"`
	Guests          guestsRequest `json:"guests"`
	SpecialRequests string        `json:"special_requests"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON booking request")
		return
	}
	// date formats are checked during admission, after the listing lookup
	cmd := bookingapp.CreateBookingCommand{
		ListingID:       strings.TrimSpace(req.ListingID),
		GuestID:         p.ID,
		CheckIn:         strings.TrimSpace(req.CheckIn),
		CheckOut:        strings.TrimSpace(req.CheckOut),
		Adults:          req.Guests.Adults,
		Children:        req.Guests.Children,
		SpecialRequests: req.SpecialRequests,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Availability(c *gin.Context) {
	checkIn, err := parseDate("check_in", c.Query("check_in"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate("check_out", c.Query("check_out"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	query := bookingapp.CheckAvailabilityQuery{
		ListingID: strings.TrimSpace(c.Query("listing_id")),
		CheckIn:   checkIn,
		CheckOut:  checkOut,
	}
	result, err := queries.Ask[bookingapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	page, ok := intQuery(c, "page")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	query := bookingapp.ListBookingsQuery{
		Actor:  p.ID,
		Role:   strings.ToLower(strings.TrimSpace(c.Query("role"))),
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.Page[dto.Booking]](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: strings.TrimSpace(c.Param("id")), Actor: p.ID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "request body must be JSON")
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		Actor:     p.ID,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ChangeStatus(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be JSON with a status field")
		return
	}
	cmd := bookingapp.ChangeStatusCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		Actor:     p.ID,
		Status:    req.Status,
	}
	result, err := commands.Dispatch[bookingapp.ChangeStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// intQuery reads an optional integer query parameter; zero means unset.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return n, true
}

var _ BookingHTTP = BookingHandler{}
