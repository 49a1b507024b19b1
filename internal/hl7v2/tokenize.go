// Package hl7v2 implements the HL7 v2.x side of the conversion pipeline:
// tokenizing raw pipe/caret messages into segment lines, decoding segments
// into an intermediate representation, validating message structure, and
// generating synthetic ADT messages for test data.
package hl7v2

import "strings"

// SegmentDelimiter is the canonical HL7 v2 segment separator.
const SegmentDelimiter = "\r"

// Tokenize normalizes raw HL7 text into an ordered list of segment lines.
// A leading UTF-8 byte-order mark is stripped, \r\n and bare \n are
// normalized to \r, and leading/trailing delimiters are trimmed so no empty
// trailing segments are produced. Interior blank lines are preserved; the
// validator reports them and the decoder skips them. No segment content is
// inspected here.
func Tokenize(raw string) []string {
	text := strings.TrimPrefix(raw, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")
	text = strings.Trim(text, "\r")
	if text == "" {
		return nil
	}
	return strings.Split(text, SegmentDelimiter)
}
