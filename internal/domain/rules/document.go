package rules

import (
	"encoding/json"
	"time"

	"github.com/jurisflow/prazo/internal/domain/calendar"
	"github.com/jurisflow/prazo/pkg/errors"
)

// Document is the wire/persistence form of a rule-set version.  It carries
// an explicit schema version so readers can reject documents produced by an
// incompatible build instead of guessing a compatible shape.
type Document struct {
	SchemaVersion        int                `json:"schema_version"`
	Version              int                `json:"version"`
	DefaultProcessTypeID string             `json:"default_process_type_id"`
	ProcessTypes         []ProcessType      `json:"process_types"`
	Multipliers          []Multiplier       `json:"multipliers"`
	Scopes               []calendar.Scope   `json:"scopes"`
	Holidays             []calendar.Holiday `json:"holidays"`
	PublishedAt          time.Time          `json:"published_at"`
}

// ToDocument converts an immutable snapshot into its persistence form.
func ToDocument(rs *RuleSet) Document {
	types := make([]ProcessType, 0, len(rs.ProcessTypes))
	for _, pt := range rs.ProcessTypes {
		types = append(types, pt)
	}
	multipliers := make([]Multiplier, 0, len(rs.Multipliers))
	for role, h := range rs.Multipliers {
		multipliers = append(multipliers, Multiplier{Role: role, Hundredths: h})
	}
	return Document{
		SchemaVersion:        rs.SchemaVersion,
		Version:              rs.Version,
		DefaultProcessTypeID: rs.DefaultProcessTypeID,
		ProcessTypes:         types,
		Multipliers:          multipliers,
		Scopes:               rs.Scopes,
		Holidays:             rs.Holidays,
		PublishedAt:          rs.PublishedAt,
	}
}

// FromDocument rebuilds an immutable snapshot from its persistence form,
// rejecting unknown schema versions.
func FromDocument(doc Document) (*RuleSet, error) {
	if doc.SchemaVersion != CurrentSchemaVersion {
		return nil, errors.Newf(errors.ErrCodeUnknownSchemaVersion,
			"rule-set document schema %d is not supported (want %d)",
			doc.SchemaVersion, CurrentSchemaVersion)
	}
	draft := Draft{
		DefaultProcessTypeID: doc.DefaultProcessTypeID,
		ProcessTypes:         doc.ProcessTypes,
		Multipliers:          doc.Multipliers,
		Scopes:               doc.Scopes,
		Holidays:             doc.Holidays,
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft.build(doc.Version, doc.PublishedAt), nil
}

// EncodeDocument serializes a snapshot to JSON.
func EncodeDocument(rs *RuleSet) ([]byte, error) {
	data, err := json.Marshal(ToDocument(rs))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode rule-set document")
	}
	return data, nil
}

// DecodeDocument deserializes and rebuilds a snapshot from JSON.
func DecodeDocument(data []byte) (*RuleSet, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode rule-set document")
	}
	return FromDocument(doc)
}
