// Package compliance implements land-bank compliance timing.
// It turns a property's program and sale date into milestones, a timing
// verdict, an enforcement recommendation and the staff work queues.
package compliance

import (
	"strings"
	"time"

	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// PROGRAM
// =============================================================================

// Program is the sale program a parcel was sold under.
type Program string

const (
	ProgramFeaturedHomes Program = "FeaturedHomes"
	ProgramReady4Rehab   Program = "Ready4Rehab"
	ProgramDemolition    Program = "Demolition"
	ProgramVIP           Program = "VIP"
)

// KnownProgram reports whether p has a rule table entry.
func KnownProgram(p Program) bool {
	_, ok := rules[p]
	return ok
}

// =============================================================================
// ACTIONS & LEVELS
// =============================================================================

// Action is an enforcement step staff performs.
type Action string

const (
	ActionAttempt1      Action = "ATTEMPT_1"
	ActionAttempt2      Action = "ATTEMPT_2"
	ActionWarning       Action = "WARNING"
	ActionDefaultNotice Action = "DEFAULT_NOTICE"

	// ActionNone means every schedule step has been satisfied.
	ActionNone Action = "NONE"
)

func (a Action) valid() bool {
	switch a {
	case ActionAttempt1, ActionAttempt2, ActionWarning, ActionDefaultNotice:
		return true
	}
	return false
}

// Enforcement levels, 0 (compliant) through 4 (legal remedies).
const (
	LevelCompliant = 0
	LevelNotice    = 1
	LevelWarning   = 2
	LevelDefault   = 3
	LevelLegal     = 4
)

// =============================================================================
// PROPERTY - Read-mostly input owned by the system of record
// =============================================================================

// CommunicationStatus is the delivery state of an outreach record.
type CommunicationStatus string

const (
	CommSent   CommunicationStatus = "sent"
	CommLogged CommunicationStatus = "logged"
	CommFailed CommunicationStatus = "failed"
)

// Communication is one outreach event to a buyer.
type Communication struct {
	ID         string              `json:"id"`
	PropertyID generic.PropertyID  `json:"propertyId"`
	Action     Action              `json:"action"`
	Status     CommunicationStatus `json:"status"`
	SentAt     *time.Time          `json:"sentAt"`
}

// Buyer is the purchaser of record.
type Buyer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Property is one land-bank parcel sold under a program.
type Property struct {
	ID                   generic.PropertyID
	ParcelID             generic.ParcelID
	Address              string
	ProgramType          string
	DateSold             *time.Time
	Compliance1stAttempt *time.Time
	Compliance2ndAttempt *time.Time
	LastContactDate      *time.Time
	EnforcementLevel     int
	Status               string
	Buyer                *Buyer
	Communications       []Communication
}

// StatusClosed marks a property whose compliance file is closed.
const StatusClosed = "closed"

// BuyerName returns the buyer's name or "" when no buyer is linked.
func (p Property) BuyerName() string {
	if p.Buyer == nil {
		return ""
	}
	return p.Buyer.Name
}

// BuyerEmail returns the trimmed buyer email or "".
func (p Property) BuyerEmail() string {
	if p.Buyer == nil {
		return ""
	}
	return strings.TrimSpace(p.Buyer.Email)
}

// FlatProperty is the shape the timing resolver consumes and the queue emits.
// Communications holds sent outreach only.
type FlatProperty struct {
	ID                   generic.PropertyID `json:"id"`
	ParcelID             generic.ParcelID   `json:"parcelId"`
	Address              string             `json:"address"`
	ProgramType          string             `json:"programType"`
	DateSold             *time.Time         `json:"dateSold"`
	Compliance1stAttempt *time.Time         `json:"compliance1stAttempt"`
	Compliance2ndAttempt *time.Time         `json:"compliance2ndAttempt"`
	LastContactDate      *time.Time         `json:"lastContactDate"`
	EnforcementLevel     int                `json:"enforcementLevel"`
	Buyer                string             `json:"buyer"`
	BuyerEmail           string             `json:"buyerEmail"`
	Communications       []Communication    `json:"communications"`
}

// Flatten projects a Property into the resolver input, keeping only sent
// communications.
func Flatten(p Property) FlatProperty {
	sent := make([]Communication, 0, len(p.Communications))
	for _, c := range p.Communications {
		if c.Status == CommSent {
			sent = append(sent, c)
		}
	}
	return FlatProperty{
		ID:                   p.ID,
		ParcelID:             p.ParcelID,
		Address:              p.Address,
		ProgramType:          p.ProgramType,
		DateSold:             p.DateSold,
		Compliance1stAttempt: p.Compliance1stAttempt,
		Compliance2ndAttempt: p.Compliance2ndAttempt,
		LastContactDate:      p.LastContactDate,
		EnforcementLevel:     p.EnforcementLevel,
		Buyer:                p.BuyerName(),
		BuyerEmail:           p.BuyerEmail(),
		Communications:       sent,
	}
}

// =============================================================================
// DERIVED VALUES - Recomputed on every request, never persisted
// =============================================================================

// Milestone is a scheduled compliance event with a computed due date.
type Milestone struct {
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	DueDate  generic.TimePoint `json:"dueDate"`
	Category string            `json:"category"`
}

// Verdict is the timing outcome for one property.
type Verdict struct {
	DueDate           *generic.TimePoint `json:"dueDate"`
	DaysOverdue       int                `json:"daysOverdue"`
	IsDueNow          bool               `json:"isDueNow"`
	RecommendedAction Action             `json:"recommendedAction"`
	RecommendedLevel  int                `json:"recommendedLevel"`
	Penalty           generic.Amount     `json:"penalty"`
	Error             bool               `json:"error,omitempty"`
	ErrorReason       string             `json:"errorReason,omitempty"`
}

// Issue is one data-quality finding.
type Issue struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Issue types.
const (
	IssueMissingEmail      = "missing_email"
	IssueMissing1stAttempt = "missing_1st_attempt"
	IssueMissing2ndAttempt = "missing_2nd_attempt"
	IssueNoCommunications  = "no_communications"
	IssueStaleContact      = "stale_contact"
)

// staleContactDays is how long since last contact before a file is stale.
const staleContactDays = 60
