package models

import (
	"fmt"
	"time"
)

// Day identifies one recency partition.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// YearKey, MonthKey and DayKey are the zero padded partition names.
func (d Day) YearKey() string  { return fmt.Sprintf("%04d", d.Year) }
func (d Day) MonthKey() string { return fmt.Sprintf("%02d", int(d.Month)) }
func (d Day) DayKey() string   { return fmt.Sprintf("%02d", d.Day) }

// RecencyRecord is one send event.
type RecencyRecord struct {
	ID     string    `firestore:"offerID" json:"offer_id"`
	Day    Day       `firestore:"-" json:"-"`
	SentAt time.Time `firestore:"sentAt" json:"sent_at"`
}

// SentOffer is a delivered and recorded offer, as reported to observers.
type SentOffer struct {
	Offer  Offer
	Day    Day
	SentAt time.Time
	RunID  string
	Link   string
}
