// Package models defines the conference-management entities persisted by the
// repository layer.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Conference statuses.
const (
	StatusDraft     = 1
	StatusPublished = 2
	StatusClosed    = 3
)

type Conference struct {
	ConferenceID uint            `gorm:"primaryKey" json:"conferenceId"`
	Name         string          `json:"name"`
	City         *string         `json:"city"`
	Status       int             `gorm:"default:1;index" json:"status"`
	StartsAt     time.Time       `json:"startsAt"`
	EndsAt       time.Time       `json:"endsAt"`
	Capacity     int             `json:"capacity"`
	Fee          decimal.Decimal `gorm:"type:decimal(10,2)" json:"fee"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Validate checks field constraints before writes.
func (c *Conference) Validate() error {
	if len(c.Name) < 3 {
		return fmt.Errorf("name: minimum length is 3, got %d", len(c.Name))
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity: must not be negative, got %d", c.Capacity)
	}
	if !c.EndsAt.IsZero() && c.EndsAt.Before(c.StartsAt) {
		return fmt.Errorf("endsAt: must not precede startsAt")
	}
	return nil
}

// BeforeCreate is a GORM hook that applies defaults before inserting.
func (c *Conference) BeforeCreate(tx *gorm.DB) error {
	if c.Status == 0 {
		c.Status = StatusDraft
	}
	return nil
}

type Session struct {
	SessionID    uint          `gorm:"primaryKey" json:"sessionId"`
	ConferenceID uint          `gorm:"index" json:"conferenceId"`
	Title        string        `json:"title"`
	Room         string        `json:"room"`
	StartsAt     time.Time     `json:"startsAt"`
	Length       time.Duration `json:"length"`
	CreatedAt    time.Time     `json:"createdAt"`
}

func (s *Session) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("title: must not be empty")
	}
	if s.Length < 0 {
		return fmt.Errorf("length: must not be negative")
	}
	return nil
}

// Registration statuses.
const (
	RegistrationPending   = 1
	RegistrationConfirmed = 2
	RegistrationCancelled = 3
)

type Registration struct {
	RegistrationID uint            `gorm:"primaryKey" json:"registrationId"`
	ConferenceID   uint            `gorm:"index" json:"conferenceId"`
	AttendeeName   string          `json:"attendeeName"`
	Email          string          `gorm:"index" json:"email"`
	Status         int             `gorm:"default:1" json:"status"`
	Paid           decimal.Decimal `gorm:"type:decimal(10,2)" json:"paid"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (r *Registration) Validate() error {
	if r.AttendeeName == "" {
		return fmt.Errorf("attendeeName: must not be empty")
	}
	if r.Email == "" {
		return fmt.Errorf("email: must not be empty")
	}
	return nil
}

// BeforeCreate applies registration defaults.
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.Status == 0 {
		r.Status = RegistrationPending
	}
	return nil
}
