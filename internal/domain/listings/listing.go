package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/shared/money"
)

// ErrNotFound is returned by directories for unknown listing ids.
var ErrNotFound = failure.NotFound("listing")

var (
	ErrGuestsLimit   = errors.New("listings: guests limit must be at least 1")
	ErrNightsRange   = errors.New("listings: min nights must be <= max nights")
	ErrMinNights     = errors.New("listings: min nights must be at least 1")
	ErrInvalidState  = errors.New("listings: invalid state transition")
	ErrTitleRequired = errors.New("listings: title is required")
	ErrHostRequired  = errors.New("listings: host is required")
	ErrIDRequired    = errors.New("listings: id is required")
	ErrNightlyRate   = errors.New("listings: nightly rate must be non-negative")
	ErrUnknownStatus = errors.New("listings: unknown status")
)

type ListingID string
type HostID string

type ListingState string

const (
	ListingDraft     ListingState = "draft"
	ListingActive    ListingState = "active"
	ListingInactive  ListingState = "inactive"
	ListingSuspended ListingState = "suspended"
)

func ParseState(raw string) (ListingState, error) {
	switch s := ListingState(strings.ToLower(strings.TrimSpace(raw))); s {
	case ListingDraft, ListingActive, ListingInactive, ListingSuspended:
		return s, nil
	case "":
		return ListingDraft, nil
	default:
		return "", ErrUnknownStatus
	}
}

// Listing is the snapshot of a rental unit the booking core reads at admission time.
type Listing struct {
	ID                   ListingID
	Host                 HostID
	Title                string
	City                 string
	Country              string
	GuestsLimit          int
	MinNights            int
	MaxNights            int
	BasePrice            money.Money
	CancellationPolicyID string
	State                ListingState
	TotalBookings        int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Directory is the read side of the listing catalogue plus the denormalized booking counter.
type Directory interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	IncrementBookings(ctx context.Context, id ListingID) error
}

type Repository interface {
	Directory
	Save(ctx context.Context, listing *Listing) error
}

type CreateListingParams struct {
	ID                   ListingID
	Host                 HostID
	Title                string
	City                 string
	Country              string
	GuestsLimit          int
	MinNights            int
	MaxNights            int
	BasePrice            money.Money
	CancellationPolicyID string
	Now                  time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.GuestsLimit < 1 {
		return nil, ErrGuestsLimit
	}
	if params.MinNights < 1 {
		return nil, ErrMinNights
	}
	if params.MinNights > params.MaxNights {
		return nil, ErrNightsRange
	}
	if params.BasePrice.Amount < 0 {
		return nil, ErrNightlyRate
	}
	price := params.BasePrice
	if price.Currency == "" {
		price.Currency = money.DefaultCurrency
	}
	now := params.Now.UTC()
	return &Listing{
		ID:                   params.ID,
		Host:                 params.Host,
		Title:                strings.TrimSpace(params.Title),
		City:                 strings.TrimSpace(params.City),
		Country:              strings.TrimSpace(params.Country),
		GuestsLimit:          params.GuestsLimit,
		MinNights:            params.MinNights,
		MaxNights:            params.MaxNights,
		BasePrice:            price,
		CancellationPolicyID: strings.TrimSpace(params.CancellationPolicyID),
		State:                ListingDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (l *Listing) Activate(now time.Time) error {
	if l.State == ListingActive {
		return nil
	}
	if l.GuestsLimit < 1 {
		return ErrGuestsLimit
	}
	if l.MinNights > l.MaxNights {
		return ErrNightsRange
	}
	l.State = ListingActive
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Suspend(now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSuspended
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) Bookable() bool {
	return l.State == ListingActive
}
