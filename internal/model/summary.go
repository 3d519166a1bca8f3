package model

import (
	"database/sql"
	"fmt"
	"time"
)

// SummarisableType names the kind of entity a RequestSummary belongs to
type SummarisableType string

const (
	TypeInfoRequest           SummarisableType = "info_request"
	TypeDraftInfoRequest      SummarisableType = "draft_info_request"
	TypeInfoRequestBatch      SummarisableType = "info_request_batch"
	TypeDraftInfoRequestBatch SummarisableType = "draft_info_request_batch"
)

// SummarisableTypes lists every kind that can own a summary
var SummarisableTypes = []SummarisableType{
	TypeInfoRequest,
	TypeDraftInfoRequest,
	TypeInfoRequestBatch,
	TypeDraftInfoRequestBatch,
}

// ParseSummarisableType validates a type name from user input
func ParseSummarisableType(s string) (SummarisableType, error) {
	for _, t := range SummarisableTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown summarisable type %q", s)
}

// Owner is the polymorphic reference from a summary to its source entity
type Owner struct {
	Type SummarisableType
	ID   int64
}

func (o Owner) String() string {
	return fmt.Sprintf("%s#%d", o.Type, o.ID)
}

// Summarisable is implemented by entities that can be reconciled into a
// RequestSummary
type Summarisable interface {
	SummaryOwner() Owner
}

// RequestSummary is the denormalised, searchable projection of a
// request-like entity. PublicBodyNames is NULL when no body is associated.
type RequestSummary struct {
	ID              int64
	Title           string
	Body            string
	PublicBodyNames sql.NullString
	Summarisable    Owner
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SameContent reports whether two summaries carry the same projected fields
func (s *RequestSummary) SameContent(o *RequestSummary) bool {
	return s.Title == o.Title &&
		s.Body == o.Body &&
		s.PublicBodyNames == o.PublicBodyNames &&
		s.Summarisable == o.Summarisable
}
