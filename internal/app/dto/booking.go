package dto

import (
	"time"

	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/money"
)

// DateLayout is the wire format of stay dates.
const DateLayout = "2006-01-02"

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type GuestsDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type PricingDTO struct {
	NightlyRate MoneyDTO `json:"nightly_rate"`
	TotalAmount int64    `json:"total_amount"`
	Currency    string   `json:"currency"`
}

type BookingListingSnapshot struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

type Booking struct {
	ID                 string                 `json:"id"`
	Listing            BookingListingSnapshot `json:"listing"`
	GuestID            string                 `json:"guest_id"`
	HostID             string                 `json:"host_id"`
	CheckIn            string                 `json:"check_in"`
	CheckOut           string                 `json:"check_out"`
	Nights             int                    `json:"nights"`
	Guests             GuestsDTO              `json:"guests"`
	Pricing            PricingDTO             `json:"pricing"`
	Status             string                 `json:"status"`
	SpecialRequests    string                 `json:"special_requests,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	CancellationPolicy string                 `json:"cancellation_policy"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type Availability struct {
	ListingID string `json:"listing_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Nights    int    `json:"nights"`
	Available bool   `json:"available"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

// MapBooking renders a booking; listing may be nil when the listing is gone.
func MapBooking(b *domainbooking.Booking, listing *domainlistings.Listing) Booking {
	snapshot := BookingListingSnapshot{ID: string(b.ListingID)}
	if listing != nil {
		snapshot.Title = listing.Title
		snapshot.City = listing.City
		snapshot.Country = listing.Country
	}
	return Booking{
		ID:       string(b.ID),
		Listing:  snapshot,
		GuestID:  b.GuestID,
		HostID:   string(b.HostID),
		CheckIn:  b.Range.CheckIn.Format(DateLayout),
		CheckOut: b.Range.CheckOut.Format(DateLayout),
		Nights:   b.Nights,
		Guests:   GuestsDTO{Adults: b.Guests.Adults, Children: b.Guests.Children},
		Pricing: PricingDTO{
			NightlyRate: MapMoney(b.Pricing.NightlyRate),
			TotalAmount: b.Pricing.Total.Amount,
			Currency:    b.Pricing.Total.Currency,
		},
		Status:             string(b.Status),
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		CancellationPolicy: string(b.CancellationPolicy),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
