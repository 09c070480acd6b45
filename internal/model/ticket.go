package model

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// TicketDuration is how long AFIP honors an authorization ticket.
const TicketDuration = 12 * time.Hour

// ArgentinaTZ is the civil timezone used for ticket timestamps and receipt
// date arithmetic.
var ArgentinaTZ = mustLoadArgentinaTZ()

func mustLoadArgentinaTZ() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		// Argentina has not observed DST since 2009.
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// AuthTicket is a short-lived signed credential required to call AFIP's
// business operations.
//
// Tickets are persisted only once authorized and are immutable afterwards: an
// expired ticket is never refreshed in place, a new one is created instead.
type AuthTicket struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner   *Taxpayer `gorm:"foreignKey:OwnerID"`

	UniqueID  int64     `gorm:"not null;uniqueIndex"`
	Generated time.Time `gorm:"not null"`
	Expires   time.Time `gorm:"not null;index"`
	// Service is the AFIP webservice this ticket was authorized for ("wsfe").
	Service string `gorm:"type:varchar(34);not null;index"`

	Token     string `gorm:"type:text;not null"`
	Signature string `gorm:"type:text;not null"`

	CreatedAt time.Time
}

func (AuthTicket) TableName() string { return "auth_tickets" }

// IsActive reports whether AFIP still honors this ticket.
func (t *AuthTicket) IsActive(now time.Time) bool {
	return t.Token != "" && t.Signature != "" && now.Before(t.Expires)
}

// NewAuthTicket builds an unauthorized ticket for a taxpayer and service with
// the protocol defaults: a random 31-bit unique id and a 12-hour lifetime in
// Argentina's civil timezone.
func NewAuthTicket(owner *Taxpayer, service string) *AuthTicket {
	now := time.Now().In(ArgentinaTZ)
	return &AuthTicket{
		OwnerID:   owner.ID,
		Owner:     owner,
		UniqueID:  rand.Int63n(1 << 31),
		Generated: now,
		Expires:   now.Add(TicketDuration),
		Service:   service,
	}
}
