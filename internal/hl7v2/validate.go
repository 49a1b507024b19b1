package hl7v2

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Z-prefixed user-defined segments are allowed separately.
	segmentNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,2}$`)
	visitNumberRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	timestampRe   = regexp.MustCompile(`^\d{12,14}$`)
)

// Validate checks HL7 v2.x structure over normalized segment lines and
// returns every violation found (empty slice = valid). It never mutates its
// input and never fails on malformed content; malformation is itself a
// violation. Validation is advisory: the decoder and mapper run regardless,
// and callers decide whether violations gate conversion.
func Validate(lines []string) []string {
	var violations []string

	order := make([]string, len(lines))
	for i, line := range lines {
		order[i] = strings.TrimSpace(strings.SplitN(line, "|", 2)[0])
	}
	present := map[string]bool{}
	for _, seg := range order {
		present[seg] = true
	}

	// Segment presence
	if !present["MSH"] {
		violations = append(violations, "Missing required segment: MSH")
	}
	if !present["PID"] {
		violations = append(violations, "Missing required segment: PID")
	}
	if msgType := messageType(lines); strings.HasPrefix(msgType, "ADT") {
		if !present["PV1"] {
			violations = append(violations, "PV1 is required for ADT messages")
		}
		if !present["EVN"] {
			violations = append(violations, "EVN is recommended for ADT messages but missing")
		}
	}

	// Co-occurrence
	if present["OBX"] && !present["OBR"] {
		violations = append(violations, "OBX exists but OBR segment is missing")
	}

	// Ordering, only checked when both segments are present
	if present["PID"] && present["MSH"] && indexOf(order, "PID") < indexOf(order, "MSH") {
		violations = append(violations, "PID appears before MSH (invalid order)")
	}
	if present["OBR"] && present["PID"] && indexOf(order, "OBR") < indexOf(order, "PID") {
		violations = append(violations, "OBR appears before PID (invalid order)")
	}
	if present["OBX"] && present["OBR"] && indexOf(order, "OBX") < indexOf(order, "OBR") {
		violations = append(violations, "OBX appears before OBR (invalid order)")
	}
	if present["PV1"] && present["PID"] && indexOf(order, "PV1") < indexOf(order, "PID") {
		violations = append(violations, "PV1 appears before PID (invalid order)")
	}
	if present["PV1"] && present["OBR"] && indexOf(order, "PV1") > indexOf(order, "OBR") {
		violations = append(violations, "PV1 appears after OBR (invalid order)")
	}

	// Per-line and per-field checks
	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			violations = append(violations, fmt.Sprintf("Line %d: Empty or whitespace-only line", lineNo))
			continue
		}

		parts := strings.Split(line, "|")
		seg := strings.TrimSpace(parts[0])

		if !segmentNameRe.MatchString(seg) && !strings.HasPrefix(seg, "Z") {
			violations = append(violations, fmt.Sprintf("Line %d: Invalid segment name '%s'", lineNo, seg))
		}
		if !strings.Contains(line, "|") {
			violations = append(violations, fmt.Sprintf("Line %d: Segment '%s' contains no field separators '|'", lineNo, seg))
		}

		violations = append(violations, validateFields(seg, parts)...)
	}

	return violations
}

// validateFields applies the per-segment mandatory and format constraints.
// parts is the raw pipe split, so clinical field N is parts[N].
func validateFields(seg string, parts []string) []string {
	var violations []string

	blank := func(idx int) bool {
		return idx >= len(parts) || strings.TrimSpace(parts[idx]) == ""
	}

	switch seg {
	case "MSH":
		if blank(8) {
			violations = append(violations, "MSH-9 (message type) is missing or empty")
		}
	case "PID":
		if blank(3) {
			violations = append(violations, "PID-3 (patient identifier) is missing or empty")
		}
		if blank(5) {
			violations = append(violations, "PID-5 (patient name) is missing or empty")
		}
	case "OBR":
		if blank(4) {
			violations = append(violations, "OBR-4 (test code) is missing or empty")
		}
	case "OBX":
		if blank(3) {
			violations = append(violations, "OBX-3 (observation code) is missing or empty")
		}
		if blank(5) {
			violations = append(violations, "OBX-5 (observation value) is missing or empty")
		}
	case "PV1":
		if blank(2) {
			violations = append(violations, "PV1-2 (patient class) is missing or empty")
		} else if len(strings.TrimSpace(parts[2])) != 1 {
			violations = append(violations, "PV1-2 (patient class) must be a single character")
		}
		if !blank(19) && !visitNumberRe.MatchString(strings.TrimSpace(parts[19])) {
			violations = append(violations, "PV1-19 (visit number) has an invalid format")
		}
		if !blank(44) && !timestampRe.MatchString(strings.TrimSpace(parts[44])) {
			violations = append(violations, "PV1-44 (admit time) is not a valid HL7 timestamp")
		}
		if !blank(45) && !timestampRe.MatchString(strings.TrimSpace(parts[45])) {
			violations = append(violations, "PV1-45 (discharge time) is not a valid HL7 timestamp")
		}
	case "EVN":
		if blank(1) {
			violations = append(violations, "EVN-1 (event type) is missing or empty")
		}
		if !blank(2) && !timestampRe.MatchString(strings.TrimSpace(parts[2])) {
			violations = append(violations, "EVN-2 (recorded time) is not a valid HL7 timestamp")
		}
	}

	return violations
}

// messageType returns MSH-9 from the first MSH segment, or "".
func messageType(lines []string) string {
	for _, line := range lines {
		if !strings.HasPrefix(line, "MSH") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) > 8 {
			return strings.TrimSpace(parts[8])
		}
		return ""
	}
	return ""
}

func indexOf(order []string, seg string) int {
	for i, s := range order {
		if s == seg {
			return i
		}
	}
	return -1
}
