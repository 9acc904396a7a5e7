package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayhub/internal/domain/listings"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, fmt.Errorf("find listing %s: %w", id, err)
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	if _, err := r.col.UpdateByID(ctx, doc.ID, listingUpsert(doc), options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save listing %s: %w", doc.ID, err)
	}
	return nil
}

// listingUpsert leaves total_bookings to IncrementBookings once the listing exists, so
// re-saving a listing never resets its counter.
func listingUpsert(doc listingDocument) bson.M {
	return bson.M{
		"$set": bson.M{
			"host_id":                doc.HostID,
			"title":                  doc.Title,
			"city":                   doc.City,
			"country":                doc.Country,
			"guests_limit":           doc.GuestsLimit,
			"min_nights":             doc.MinNights,
			"max_nights":             doc.MaxNights,
			"base_price":             doc.BasePrice,
			"cancellation_policy_id": doc.CancellationPolicyID,
			"state":                  doc.State,
			"updated_at":             doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"total_bookings": doc.TotalBookings,
			"created_at":     doc.CreatedAt,
		},
	}
}

// IncrementBookings bumps the denormalized counter without reading the listing.
func (r *ListingRepository) IncrementBookings(ctx context.Context, id domainlistings.ListingID) error {
	update := bson.M{
		"$inc": bson.M{"total_bookings": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.col.UpdateByID(ctx, string(id), update)
	if err != nil {
		return fmt.Errorf("increment bookings for listing %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

type listingDocument struct {
	ID                   string        `bson:"_id"`
	HostID               string        `bson:"host_id"`
	Title                string        `bson:"title"`
	City                 string        `bson:"city"`
	Country              string        `bson:"country"`
	GuestsLimit          int           `bson:"guests_limit"`
	MinNights            int           `bson:"min_nights"`
	MaxNights            int           `bson:"max_nights"`
	BasePrice            moneyDocument `bson:"base_price"`
	CancellationPolicyID string        `bson:"cancellation_policy_id"`
	State                string        `bson:"state"`
	TotalBookings        int64         `bson:"total_bookings"`
	CreatedAt            time.Time     `bson:"created_at"`
	UpdatedAt            time.Time     `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:                   string(l.ID),
		HostID:               string(l.Host),
		Title:                l.Title,
		City:                 l.City,
		Country:              l.Country,
		GuestsLimit:          l.GuestsLimit,
		MinNights:            l.MinNights,
		MaxNights:            l.MaxNights,
		BasePrice:            newMoneyDocument(l.BasePrice),
		CancellationPolicyID: l.CancellationPolicyID,
		State:                string(l.State),
		TotalBookings:        l.TotalBookings,
		CreatedAt:            l.CreatedAt.UTC(),
		UpdatedAt:            l.UpdatedAt.UTC(),
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:                   domainlistings.ListingID(d.ID),
		Host:                 domainlistings.HostID(d.HostID),
		Title:                d.Title,
		City:                 d.City,
		Country:              d.Country,
		GuestsLimit:          d.GuestsLimit,
		MinNights:            d.MinNights,
		MaxNights:            d.MaxNights,
		BasePrice:            d.BasePrice.toMoney(),
		CancellationPolicyID: d.CancellationPolicyID,
		State:                domainlistings.ListingState(d.State),
		TotalBookings:        d.TotalBookings,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
	}
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
