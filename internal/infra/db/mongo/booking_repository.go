package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/money"
)

// BookingRepository stores bookings plus one booking_nights document per occupied night.
// The night _id is listing|date, so two active bookings can never hold the same night.
type BookingRepository struct {
	col    *mongo.Collection
	nights *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection), nights: db.Collection(nightsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return doc.toAggregate(), nil
}

// Create must run inside a unit of work so the booking and its nights commit together.
func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if isConflict(err) {
			return domainbooking.ErrConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	if b.Status.Active() {
		if err := r.holdNights(ctx, b); err != nil {
			return err
		}
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
	if err != nil {
		if isConflict(err) {
			return domainbooking.ErrStale
		}
		return fmt.Errorf("replace booking %s: %w", doc.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, lookupErr := r.ByID(ctx, b.ID); errors.Is(lookupErr, domainbooking.ErrNotFound) {
			return domainbooking.ErrNotFound
		}
		return domainbooking.ErrStale
	}
	if !b.Status.Active() {
		if _, err := r.nights.DeleteMany(ctx, bson.M{"booking_id": doc.ID}); err != nil {
			return fmt.Errorf("release nights of %s: %w", doc.ID, err)
		}
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ActiveForListing(ctx context.Context, listingID listings.ListingID, window daterange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": activeStatusValues()},
		"check_in":   bson.M{"$lt": window.CheckOut},
		"check_out":  bson.M{"$gt": window.CheckIn},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find active bookings: %w", err)
	}
	return decodeBookings(ctx, cur)
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, int64, error) {
	query := bson.M{}
	if filter.GuestID != "" {
		query["guest_id"] = filter.GuestID
	}
	if filter.HostID != "" {
		query["host_id"] = string(filter.HostID)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	items, err := decodeBookings(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *BookingRepository) holdNights(ctx context.Context, b *domainbooking.Booking) error {
	nights := b.Range.EachNight()
	docs := make([]any, 0, len(nights))
	for _, night := range nights {
		docs = append(docs, nightDocument{
			ID:        nightKey(b.ListingID, night),
			ListingID: string(b.ListingID),
			BookingID: string(b.ID),
			Night:     night,
		})
	}
	if _, err := r.nights.InsertMany(ctx, docs); err != nil {
		if isConflict(err) {
			return domainbooking.ErrConflict
		}
		return fmt.Errorf("hold nights: %w", err)
	}
	return nil
}

func decodeBookings(ctx context.Context, cur *mongo.Cursor) ([]*domainbooking.Booking, error) {
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func activeStatusValues() bson.A {
	values := bson.A{}
	for _, s := range domainbooking.ActiveStatuses() {
		values = append(values, string(s))
	}
	return values
}

func nightKey(listingID listings.ListingID, night time.Time) string {
	return string(listingID) + "|" + night.UTC().Format("2006-01-02")
}

type nightDocument struct {
	ID        string    `bson:"_id"`
	ListingID string    `bson:"listing_id"`
	BookingID string    `bson:"booking_id"`
	Night     time.Time `bson:"night"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type bookingDocument struct {
	ID                 string        `bson:"_id"`
	ListingID          string        `bson:"listing_id"`
	GuestID            string        `bson:"guest_id"`
	HostID             string        `bson:"host_id"`
	CheckIn            time.Time     `bson:"check_in"`
	CheckOut           time.Time     `bson:"check_out"`
	Nights             int           `bson:"nights"`
	Adults             int           `bson:"adults"`
	Children           int           `bson:"children"`
	NightlyRate        moneyDocument `bson:"nightly_rate"`
	Total              moneyDocument `bson:"total"`
	Status             string        `bson:"status"`
	SpecialRequests    string        `bson:"special_requests,omitempty"`
	CancellationReason string        `bson:"cancellation_reason,omitempty"`
	CancellationPolicy string        `bson:"cancellation_policy"`
	CreatedAt          time.Time     `bson:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at"`
	Version            int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:                 string(b.ID),
		ListingID:          string(b.ListingID),
		GuestID:            b.GuestID,
		HostID:             string(b.HostID),
		CheckIn:            b.Range.CheckIn.UTC(),
		CheckOut:           b.Range.CheckOut.UTC(),
		Nights:             b.Nights,
		Adults:             b.Guests.Adults,
		Children:           b.Guests.Children,
		NightlyRate:        newMoneyDocument(b.Pricing.NightlyRate),
		Total:              newMoneyDocument(b.Pricing.Total),
		Status:             string(b.Status),
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		CancellationPolicy: string(b.CancellationPolicy),
		CreatedAt:          b.CreatedAt.UTC(),
		UpdatedAt:          b.UpdatedAt.UTC(),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		ListingID: listings.ListingID(d.ListingID),
		GuestID:   d.GuestID,
		HostID:    listings.HostID(d.HostID),
		Range:     daterange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Nights:    d.Nights,
		Guests:    domainbooking.Guests{Adults: d.Adults, Children: d.Children},
		Pricing: domainbooking.Pricing{
			NightlyRate: d.NightlyRate.toMoney(),
			Total:       d.Total.toMoney(),
		},
		Status:             domainbooking.Status(d.Status),
		SpecialRequests:    d.SpecialRequests,
		CancellationReason: d.CancellationReason,
		CancellationPolicy: domainbooking.CancellationPolicy(d.CancellationPolicy),
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		Version:            d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
