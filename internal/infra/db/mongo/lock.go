package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stayhub/internal/app/policies"
)

// Locker is an advisory lock table. A lock document lives until released or until its lease
// runs out; the TTL index only tidies up, expired leases are taken over on Acquire.
type Locker struct {
	col      *mongo.Collection
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

func NewLocker(db *mongo.Database, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{col: db.Collection(locksCollection), ttl: ttl, wait: wait, interval: 50 * time.Millisecond}
}

type lockDocument struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

func (l *Locker) Acquire(ctx context.Context, key string) (policies.Release, error) {
	owner := uuid.NewString()
	err := policies.Poll(ctx, l.wait, l.interval, func(ctx context.Context) (bool, error) {
		now := time.Now().UTC()
		_, err := l.col.InsertOne(ctx, lockDocument{ID: key, Owner: owner, ExpiresAt: now.Add(l.ttl), CreatedAt: now})
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, err
		}
		// drop a lease left behind by a crashed holder, the next attempt can then insert
		_, err = l.col.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lt": now}})
		return false, err
	})
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		_, err := l.col.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
		return err
	}, nil
}

var _ policies.Locker = (*Locker)(nil)
