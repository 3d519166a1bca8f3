package model

import (
	"time"

	"github.com/jjenkins/foirequests/internal/legislation"
)

// InfoRequest represents a request sent to a single public body
type InfoRequest struct {
	ID               int64
	Title            string
	UserID           int64
	PublicBody       *PublicBody
	LawUsed          string
	OutgoingMessages []OutgoingMessage
	IncomingMessages []IncomingMessage
	CreatedAt        time.Time
}

// OutgoingMessage represents a message sent by the requester
type OutgoingMessage struct {
	ID            int64
	InfoRequestID int64
	Body          string
	CreatedAt     time.Time
}

// IncomingMessage represents a response received from the public body.
// Refusals holds the refusal reasons recorded against the response.
type IncomingMessage struct {
	ID            int64
	InfoRequestID int64
	Refusals      []string
	CreatedAt     time.Time
}

// DraftInfoRequest represents an unsent request to a single public body
type DraftInfoRequest struct {
	ID         int64
	Title      string
	Body       string
	UserID     int64
	PublicBody *PublicBody
}

// InfoRequestBatch represents one request sent to many public bodies
type InfoRequestBatch struct {
	ID           int64
	Title        string
	Body         string
	UserID       int64
	PublicBodies []PublicBody
}

// DraftInfoRequestBatch represents an unsent batch request
type DraftInfoRequestBatch struct {
	ID           int64
	Title        string
	Body         string
	UserID       int64
	PublicBodies []PublicBody
}

// Legislation reports the law the request was made under, if recorded
func (r *InfoRequest) Legislation() (legislation.Legislation, bool) {
	if r == nil || r.LawUsed == "" {
		return legislation.Legislation{}, false
	}
	return legislation.Find(r.LawUsed)
}

// Equal reports whether r and o are the same request. Persisted requests
// compare by ID; unsaved requests are only equal to themselves.
func (r *InfoRequest) Equal(o *InfoRequest) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.ID == 0 || o.ID == 0 {
		return r == o
	}
	return r.ID == o.ID
}

// FirstOutgoingMessage returns the initial request message, if any
func (r *InfoRequest) FirstOutgoingMessage() (OutgoingMessage, bool) {
	if len(r.OutgoingMessages) == 0 {
		return OutgoingMessage{}, false
	}
	return r.OutgoingMessages[0], true
}

func (r *InfoRequest) SummaryOwner() Owner {
	return Owner{Type: TypeInfoRequest, ID: r.ID}
}

func (d *DraftInfoRequest) SummaryOwner() Owner {
	return Owner{Type: TypeDraftInfoRequest, ID: d.ID}
}

func (b *InfoRequestBatch) SummaryOwner() Owner {
	return Owner{Type: TypeInfoRequestBatch, ID: b.ID}
}

func (d *DraftInfoRequestBatch) SummaryOwner() Owner {
	return Owner{Type: TypeDraftInfoRequestBatch, ID: d.ID}
}
