/*
Package factory converts exported property records into compliance.Property.

PURPOSE:
  The system of record exports parcels as JSON or YAML with loosely typed
  fields: program labels as staff type them ("Featured Homes", "R4R"),
  dates in FileMaker's MM/DD/YYYY form or ISO form, and communications
  without stable IDs. The factory normalizes all of that so stores, seed
  data and demo scenarios share one import path.

RECORD SCHEMA (JSON or YAML):
  {
    "id": "fh-1001",
    "parcel_id": "01-123-456",
    "address": "123 Main St",
    "program": "Featured Homes",
    "date_sold": "01/15/2024",
    "compliance_1st_attempt": "2024-02-20",
    "compliance_2nd_attempt": "",
    "last_contact_date": "2024-02-20T15:04:05Z",
    "enforcement_level": 1,
    "status": "active",
    "buyer": {"id": "b-1", "name": "Ada Buyer", "email": "ada@example.org"},
    "communications": [
      {"action": "ATTEMPT_1", "status": "sent", "sent_at": "02/20/2024"}
    ]
  }

KEY FEATURES:
  - Program labels normalized; unknown labels kept verbatim
  - Blank dates become nil; bad dates are rejected with ErrInvalidDate
  - Missing communication IDs get a UUID
  - Enforcement level validated to 0..4

USAGE:
  f := factory.NewPropertyFactory()
  props, err := f.ParseJSON(data)
  for _, p := range props {
      store.SaveProperty(ctx, p)
  }

SEE ALSO:
  - compliance/types.go: Property definition
  - api/scenarios.go: Demo datasets built from records
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// RECORD SCHEMA TYPES
// =============================================================================

// PropertyRecord is the export representation of a property.
type PropertyRecord struct {
	ID                   string                `json:"id" yaml:"id"`
	ParcelID             string                `json:"parcel_id" yaml:"parcel_id"`
	Address              string                `json:"address" yaml:"address"`
	Program              string                `json:"program" yaml:"program"`
	DateSold             string                `json:"date_sold,omitempty" yaml:"date_sold,omitempty"`
	Compliance1stAttempt string                `json:"compliance_1st_attempt,omitempty" yaml:"compliance_1st_attempt,omitempty"`
	Compliance2ndAttempt string                `json:"compliance_2nd_attempt,omitempty" yaml:"compliance_2nd_attempt,omitempty"`
	LastContactDate      string                `json:"last_contact_date,omitempty" yaml:"last_contact_date,omitempty"`
	EnforcementLevel     int                   `json:"enforcement_level" yaml:"enforcement_level"`
	Status               string                `json:"status,omitempty" yaml:"status,omitempty"`
	Buyer                *BuyerRecord          `json:"buyer,omitempty" yaml:"buyer,omitempty"`
	Communications       []CommunicationRecord `json:"communications,omitempty" yaml:"communications,omitempty"`
}

// BuyerRecord is the export representation of a buyer.
type BuyerRecord struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// CommunicationRecord is the export representation of one outreach event.
type CommunicationRecord struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Action string `json:"action" yaml:"action"`
	Status string `json:"status" yaml:"status"`
	SentAt string `json:"sent_at,omitempty" yaml:"sent_at,omitempty"`
}

// recordSet lets YAML/JSON files wrap records in a "properties" key.
type recordSet struct {
	Properties []PropertyRecord `json:"properties" yaml:"properties"`
}

// =============================================================================
// PROPERTY FACTORY
// =============================================================================

// PropertyFactory converts export records to compliance properties.
type PropertyFactory struct {
	// NewID generates communication IDs when a record has none.
	NewID func() string
}

// NewPropertyFactory creates a factory that assigns UUIDs.
func NewPropertyFactory() *PropertyFactory {
	return &PropertyFactory{NewID: uuid.NewString}
}

// ParseJSON accepts either a bare array of records or {"properties": [...]}.
func (f *PropertyFactory) ParseJSON(data []byte) ([]compliance.Property, error) {
	var records []PropertyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var set recordSet
		if err2 := json.Unmarshal(data, &set); err2 != nil {
			return nil, fmt.Errorf("failed to parse property JSON: %w", err)
		}
		records = set.Properties
	}
	return f.FromRecords(records)
}

// ParseYAML accepts either a bare list of records or a "properties" key.
func (f *PropertyFactory) ParseYAML(data []byte) ([]compliance.Property, error) {
	var records []PropertyRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		var set recordSet
		if err2 := yaml.Unmarshal(data, &set); err2 != nil {
			return nil, fmt.Errorf("failed to parse property YAML: %w", err)
		}
		records = set.Properties
	}
	return f.FromRecords(records)
}

// FromRecords converts every record, failing on the first invalid one.
func (f *PropertyFactory) FromRecords(records []PropertyRecord) ([]compliance.Property, error) {
	out := make([]compliance.Property, 0, len(records))
	for i, r := range records {
		p, err := f.FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, r.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// FromRecord converts one record.
func (f *PropertyFactory) FromRecord(r PropertyRecord) (compliance.Property, error) {
	if strings.TrimSpace(r.ID) == "" {
		return compliance.Property{}, fmt.Errorf("property id is required")
	}
	if r.EnforcementLevel < compliance.LevelCompliant || r.EnforcementLevel > compliance.LevelLegal {
		return compliance.Property{}, fmt.Errorf("enforcement_level %d out of range", r.EnforcementLevel)
	}

	p := compliance.Property{
		ID:               generic.PropertyID(r.ID),
		ParcelID:         generic.ParcelID(r.ParcelID),
		Address:          r.Address,
		ProgramType:      string(ParseProgram(r.Program)),
		EnforcementLevel: r.EnforcementLevel,
		Status:           strings.ToLower(strings.TrimSpace(r.Status)),
	}
	if p.Status == "" {
		p.Status = "active"
	}

	var err error
	if p.DateSold, err = parseOptionalDate("date_sold", r.DateSold); err != nil {
		return compliance.Property{}, err
	}
	if p.Compliance1stAttempt, err = parseOptionalDate("compliance_1st_attempt", r.Compliance1stAttempt); err != nil {
		return compliance.Property{}, err
	}
	if p.Compliance2ndAttempt, err = parseOptionalDate("compliance_2nd_attempt", r.Compliance2ndAttempt); err != nil {
		return compliance.Property{}, err
	}
	if p.LastContactDate, err = parseOptionalDate("last_contact_date", r.LastContactDate); err != nil {
		return compliance.Property{}, err
	}

	if r.Buyer != nil {
		p.Buyer = &compliance.Buyer{ID: r.Buyer.ID, Name: r.Buyer.Name, Email: r.Buyer.Email}
	}

	for _, cr := range r.Communications {
		c, err := f.communication(p.ID, cr)
		if err != nil {
			return compliance.Property{}, err
		}
		p.Communications = append(p.Communications, c)
	}
	return p, nil
}

func (f *PropertyFactory) communication(pid generic.PropertyID, cr CommunicationRecord) (compliance.Communication, error) {
	sentAt, err := parseOptionalDate("sent_at", cr.SentAt)
	if err != nil {
		return compliance.Communication{}, err
	}
	id := cr.ID
	if id == "" {
		id = f.NewID()
	}
	return compliance.Communication{
		ID:         id,
		PropertyID: pid,
		Action:     compliance.Action(strings.ToUpper(strings.TrimSpace(cr.Action))),
		Status:     parseCommunicationStatus(cr.Status),
		SentAt:     sentAt,
	}, nil
}

// ToRecord converts a property back to its export form. Dates are ISO.
func (f *PropertyFactory) ToRecord(p compliance.Property) PropertyRecord {
	r := PropertyRecord{
		ID:                   string(p.ID),
		ParcelID:             string(p.ParcelID),
		Address:              p.Address,
		Program:              p.ProgramType,
		DateSold:             formatOptionalDate(p.DateSold),
		Compliance1stAttempt: formatOptionalDate(p.Compliance1stAttempt),
		Compliance2ndAttempt: formatOptionalDate(p.Compliance2ndAttempt),
		LastContactDate:      formatOptionalDate(p.LastContactDate),
		EnforcementLevel:     p.EnforcementLevel,
		Status:               p.Status,
	}
	if p.Buyer != nil {
		r.Buyer = &BuyerRecord{ID: p.Buyer.ID, Name: p.Buyer.Name, Email: p.Buyer.Email}
	}
	for _, c := range p.Communications {
		r.Communications = append(r.Communications, CommunicationRecord{
			ID:     c.ID,
			Action: string(c.Action),
			Status: string(c.Status),
			SentAt: formatOptionalDate(c.SentAt),
		})
	}
	return r
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// ParseProgram maps staff-entered program labels to a Program. Unknown labels
// are returned trimmed but otherwise untouched.
func ParseProgram(label string) compliance.Program {
	trimmed := strings.TrimSpace(label)
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(trimmed))
	switch key {
	case "featuredhomes", "featuredhome", "featured", "fh":
		return compliance.ProgramFeaturedHomes
	case "ready4rehab", "readyforrehab", "r4r":
		return compliance.ProgramReady4Rehab
	case "demolition", "demo":
		return compliance.ProgramDemolition
	case "vip", "vacantimprovementprogram":
		return compliance.ProgramVIP
	default:
		return compliance.Program(trimmed)
	}
}

// dateLayouts are tried in order. FileMaker exports use the US forms.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

// ParseRecordDate parses one exported date. The result is a UTC calendar date.
func ParseRecordDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.FromTime(t).Time, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", generic.ErrInvalidDate, s)
}

func parseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseRecordDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &t, nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return generic.FromTime(*t).String()
}

func parseCommunicationStatus(s string) compliance.CommunicationStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sent":
		return compliance.CommSent
	case "failed":
		return compliance.CommFailed
	default:
		return compliance.CommLogged
	}
}
