package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber mirrors one row in the `subscriptions` table.  Email is unique
// across the table; SubscribedAt is stored as timestamptz in UTC.
type Subscriber struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	SubscribedAt time.Time `db:"subscribed_at"`
}

// NewSubscriber stamps a fresh v4 ID and the current UTC time.
func NewSubscriber(email, name string) Subscriber {
	return Subscriber{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		SubscribedAt: time.Now().UTC(),
	}
}
