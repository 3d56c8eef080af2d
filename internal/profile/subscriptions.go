package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile: record not found")

// SubscriptionRecord is a push subscription this device created, including
// the private half of its p256dh key.
type SubscriptionRecord struct {
	ID         string
	Endpoint   string
	P256dh     string
	Auth       string
	PrivateKey []byte
	// ServerKey is the application server key the subscription was scoped to.
	ServerKey string
	CreatedAt time.Time
}

func (db *DB) SaveSubscription(ctx context.Context, rec SubscriptionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO push_subscriptions (id, endpoint, p256dh, auth, private_key, server_key, created_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			endpoint = excluded.endpoint,
			p256dh = excluded.p256dh,
			auth = excluded.auth,
			private_key = excluded.private_key,
			server_key = excluded.server_key`,
		rec.ID, rec.Endpoint, rec.P256dh, rec.Auth, rec.PrivateKey, rec.ServerKey, rec.CreatedAt.Unix())
	return err
}

func (db *DB) Subscription(ctx context.Context, id string) (SubscriptionRecord, error) {
	row := db.sql.QueryRowContext(ctx,
		`SELECT id, endpoint, p256dh, auth, private_key, server_key, created_unix
		FROM push_subscriptions WHERE id = ?`, id)
	return scanSubscription(row)
}

// LatestSubscription returns the most recently created subscription.
func (db *DB) LatestSubscription(ctx context.Context) (SubscriptionRecord, error) {
	row := db.sql.QueryRowContext(ctx,
		`SELECT id, endpoint, p256dh, auth, private_key, server_key, created_unix
		FROM push_subscriptions ORDER BY created_unix DESC, id LIMIT 1`)
	return scanSubscription(row)
}

func (db *DB) DeleteSubscription(ctx context.Context, id string) error {
	res, err := db.sql.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubscription(row *sql.Row) (SubscriptionRecord, error) {
	var (
		rec     SubscriptionRecord
		created int64
	)
	err := row.Scan(&rec.ID, &rec.Endpoint, &rec.P256dh, &rec.Auth, &rec.PrivateKey, &rec.ServerKey, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return SubscriptionRecord{}, ErrNotFound
	}
	if err != nil {
		return SubscriptionRecord{}, err
	}
	rec.CreatedAt = time.Unix(created, 0)
	return rec, nil
}
