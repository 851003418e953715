// Package event models the two request streams read from the site database.
//
// Event is a closed sum type: ContactRequest and ServiceRequest are its only
// implementations. Consumers switch on the concrete type.
package event

import (
	"strings"
	"time"
)

// Stream names one of the two append-only request tables.
type Stream string

const (
	StreamContact Stream = "contact"
	StreamService Stream = "service"
)

func (s Stream) Valid() bool { return s == StreamContact || s == StreamService }

// Meta carries the fields shared by both request kinds.
type Meta struct {
	ID    int64
	Name  string
	Phone string
	// CreatedAt is zero when the stored timestamp was absent or malformed.
	CreatedAt time.Time
	Processed bool
}

// Event is implemented by ContactRequest and ServiceRequest only.
type Event interface {
	Stream() Stream
	Base() Meta
	sealed()
}

// ContactRequest is a "call me back" submission.
type ContactRequest struct {
	Meta
}

func (ContactRequest) Stream() Stream { return StreamContact }
func (c ContactRequest) Base() Meta   { return c.Meta }
func (ContactRequest) sealed()        {}

// ServiceRequest is an order form submission that may carry one file.
type ServiceRequest struct {
	Meta
	Email    string
	Category string
	Message  string
	// Attachment is the opaque storage reference of the uploaded file ("" if none).
	Attachment string
}

func (ServiceRequest) Stream() Stream { return StreamService }
func (s ServiceRequest) Base() Meta   { return s.Meta }
func (ServiceRequest) sealed()        {}

// Contact is the (name, phone) identity prefix shared by both streams.
type Contact struct {
	Name  string
	Phone string
}

// IsZero reports whether both name and phone are blank.
func (c Contact) IsZero() bool { return c.Name == "" && c.Phone == "" }

// Identity decides whether two service requests belong to one submission.
type Identity struct {
	Contact
	Email string
}

func (m Meta) Contact() Contact {
	return Contact{Name: strings.TrimSpace(m.Name), Phone: strings.TrimSpace(m.Phone)}
}

func (s ServiceRequest) Identity() Identity {
	return Identity{Contact: s.Contact(), Email: strings.TrimSpace(s.Email)}
}

// Timestamp returns CreatedAt, or now when it is unknown.
func (m Meta) Timestamp(now time.Time) time.Time {
	if m.CreatedAt.IsZero() {
		return now
	}
	return m.CreatedAt
}
