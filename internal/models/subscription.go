package models

import "time"

// Subscription is a service-validity window on a boitier. Dates carry no
// clock part.
type Subscription struct {
	ID        int64     `json:"id"`
	BoitierID int64     `json:"boitier_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// CurrentSubscription picks the subscription with the latest end date.
// Ties keep the first one encountered.
func CurrentSubscription(subs []*Subscription) *Subscription {
	var cur *Subscription
	for _, s := range subs {
		if cur == nil || s.EndDate.After(cur.EndDate) {
			cur = s
		}
	}
	return cur
}
