// Package pipeline wires the conversion stages together: tokenize, validate,
// decode, map, assemble. Each stage is independently callable; validation is
// advisory and never gates mapping here. Every call is a pure function of its
// input text, so one pipeline value is safe for concurrent use.
package pipeline

import (
	"github.com/hl7bridge/hl7bridge/internal/fhir"
	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
)

// Result is the output of a full conversion.
type Result struct {
	Parsed     *hl7v2.ParsedMessage `json:"parsed"`
	Violations []string             `json:"violations"`
	Bundle     fhir.Resource        `json:"fhir"`
}

// Decode tokenizes raw HL7 text and decodes it into the IR.
func Decode(raw string) (*hl7v2.ParsedMessage, error) {
	return hl7v2.Decode(hl7v2.Tokenize(raw))
}

// Validate tokenizes raw HL7 text and runs structural validation. An empty
// slice means the message is structurally valid.
func Validate(raw string) []string {
	return hl7v2.Validate(hl7v2.Tokenize(raw))
}

// Convert runs the full pipeline. Structural violations are collected and
// returned alongside the bundle; only the hard failures (no PID segment, a
// numeric observation value that does not parse) abort the conversion, and
// then no partial bundle is returned.
func Convert(raw string) (*Result, error) {
	lines := hl7v2.Tokenize(raw)
	violations := hl7v2.Validate(lines)
	if violations == nil {
		violations = []string{}
	}

	msg, err := hl7v2.Decode(lines)
	if err != nil {
		return nil, err
	}

	bundle, err := fhir.BundleFromMessage(msg)
	if err != nil {
		return nil, err
	}

	return &Result{
		Parsed:     msg,
		Violations: violations,
		Bundle:     bundle,
	}, nil
}
