package hl7v2

import (
	"fmt"
	"strings"
)

// fieldSpec describes one positional field the decoder extracts from a
// segment. Name keys the raw field value; Components, when set, keys the
// caret-separated components in order. Position 0 is the segment identifier
// itself, so clinical field N is split index N.
type fieldSpec struct {
	Pos        int
	Name       string
	Components []string
}

// segmentFields is the declarative per-segment field layout. Adding a segment
// type or field is a data change here plus a builder below, not new index
// arithmetic at call sites.
var segmentFields = map[string][]fieldSpec{
	"PID": {
		{Pos: 3, Name: "mrn"},
		{Pos: 5, Name: "name", Components: []string{"family", "given"}},
		{Pos: 7, Name: "dob"},
		{Pos: 8, Name: "sex"},
	},
	"OBR": {
		{Pos: 2, Name: "placer_order_number"},
		{Pos: 3, Name: "filler_order_number"},
		{Pos: 4, Name: "test", Components: []string{"test_code", "test_name"}},
		{Pos: 5, Name: "specimen_time"},
		{Pos: 6, Name: "result_time"},
		{Pos: 13, Name: "ordering_provider"},
	},
	"OBX": {
		{Pos: 2, Name: "value_type"},
		{Pos: 3, Name: "observation", Components: []string{"code", "text"}},
		{Pos: 5, Name: "value"},
		{Pos: 6, Name: "unit"},
		{Pos: 7, Name: "ref_range"},
		{Pos: 8, Name: "flag"},
	},
	"PV1": {
		{Pos: 1, Name: "set_id"},
		{Pos: 2, Name: "patient_class"},
		{Pos: 3, Name: "location"},
		{Pos: 7, Name: "attending_doctor"},
		{Pos: 10, Name: "hospital_service"},
		{Pos: 18, Name: "visit_number"},
	},
	"EVN": {
		{Pos: 1, Name: "event_type"},
		{Pos: 2, Name: "recorded_time"},
		{Pos: 6, Name: "event_occurred_time"},
	},
	"NK1": {
		{Pos: 2, Name: "name", Components: []string{"family", "given"}},
		{Pos: 3, Name: "relationship", Components: []string{"relationship_code", "relationship_text"}},
		{Pos: 5, Name: "phone"},
	},
	"AL1": {
		{Pos: 3, Name: "allergen", Components: []string{"allergen_code", "allergen_text"}},
		{Pos: 4, Name: "severity"},
		{Pos: 5, Name: "reaction"},
	},
}

// fieldValues holds the extracted values for one segment, keyed by the names
// declared in segmentFields. Absent fields and components are simply missing.
type fieldValues map[string]string

// segmentBuilders maps a segment type to the builder that folds its decoded
// fields into the message IR. Segment types absent from this map are skipped.
var segmentBuilders = map[string]func(*ParsedMessage, fieldValues, []string){
	"PID": buildPatient,
	"OBR": buildOrder,
	"OBX": buildObservation,
	"PV1": buildEncounter,
	"EVN": buildEvent,
	"NK1": buildRelatedPerson,
	"AL1": buildAllergy,
}

// Decode turns tokenized segment lines into the message IR. Blank lines and
// unrecognized segment types are skipped. A message without a PID segment is
// a hard failure; everything else degrades to absent records or fields.
func Decode(lines []string) (*ParsedMessage, error) {
	msg := &ParsedMessage{
		Orders:       []OrderRecord{},
		Observations: []ObservationRecord{},
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		seg := fields[0]

		build, ok := segmentBuilders[seg]
		if !ok {
			continue
		}
		build(msg, extractFields(seg, fields), fields)
	}

	if msg.Patient == nil {
		return nil, fmt.Errorf("hl7v2: no PID segment found in message")
	}
	return msg, nil
}

// extractFields applies the declared layout for a segment type to its raw
// field slice. Access is total: out-of-range and empty positions yield no
// entry in the result.
func extractFields(seg string, fields []string) fieldValues {
	vals := fieldValues{}
	for _, spec := range segmentFields[seg] {
		raw := fieldAt(fields, spec.Pos)
		if raw == "" {
			continue
		}
		if spec.Name != "" {
			vals[spec.Name] = raw
		}
		if len(spec.Components) > 0 {
			comps := strings.Split(raw, "^")
			for i, name := range spec.Components {
				if i < len(comps) && comps[i] != "" {
					vals[name] = comps[i]
				}
			}
		}
	}
	return vals
}

// fieldAt returns the field at a 0-based split index, or "" when the segment
// is too short.
func fieldAt(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

func buildPatient(msg *ParsedMessage, vals fieldValues, _ []string) {
	msg.Patient = &PatientRecord{
		MRN:    vals["mrn"],
		Family: vals["family"],
		Given:  vals["given"],
		DOB:    vals["dob"],
		Sex:    vals["sex"],
	}
}

func buildOrder(msg *ParsedMessage, vals fieldValues, _ []string) {
	// Only the first OBR in a message is retained.
	if len(msg.Orders) > 0 {
		return
	}
	msg.Orders = append(msg.Orders, OrderRecord{
		PlacerOrderNumber: vals["placer_order_number"],
		FillerOrderNumber: vals["filler_order_number"],
		TestCode:          vals["test_code"],
		TestName:          vals["test_name"],
		SpecimenTime:      vals["specimen_time"],
		ResultTime:        vals["result_time"],
		OrderingProvider:  vals["ordering_provider"],
	})
}

func buildObservation(msg *ParsedMessage, vals fieldValues, _ []string) {
	msg.Observations = append(msg.Observations, ObservationRecord{
		Code:      vals["code"],
		Text:      vals["text"],
		ValueType: vals["value_type"],
		Value:     vals["value"],
		Unit:      vals["unit"],
		RefRange:  vals["ref_range"],
		Flag:      vals["flag"],
	})
}

func buildEncounter(msg *ParsedMessage, vals fieldValues, fields []string) {
	admit, discharge := trailingTimes(fields)
	msg.Encounter = &EncounterRecord{
		SetID:           vals["set_id"],
		PatientClass:    vals["patient_class"],
		Location:        vals["location"],
		AttendingDoctor: vals["attending_doctor"],
		HospitalService: vals["hospital_service"],
		VisitNumber:     vals["visit_number"],
		AdmitTime:       admit,
		DischargeTime:   discharge,
	}
}

func buildEvent(msg *ParsedMessage, vals fieldValues, _ []string) {
	msg.Event = &EventRecord{
		EventType:         vals["event_type"],
		RecordedTime:      vals["recorded_time"],
		EventOccurredTime: vals["event_occurred_time"],
	}
}

func buildRelatedPerson(msg *ParsedMessage, vals fieldValues, _ []string) {
	rp := RelatedPersonRecord{
		Family:           vals["family"],
		Given:            vals["given"],
		RelationshipCode: vals["relationship_code"],
		RelationshipText: vals["relationship_text"],
		Phone:            vals["phone"],
	}
	// Name field without caret components falls back to the raw string.
	if rp.Family != "" && rp.Given == "" && !strings.Contains(vals["name"], "^") {
		rp.RawName = vals["name"]
		rp.Family = ""
	}
	msg.RelatedPersons = append(msg.RelatedPersons, rp)
}

func buildAllergy(msg *ParsedMessage, vals fieldValues, _ []string) {
	desc := vals["allergen_text"]
	if desc == "" {
		desc = vals["allergen"]
	}
	msg.Allergies = append(msg.Allergies, AllergyRecord{
		Description: desc,
		Reaction:    vals["reaction"],
		Severity:    vals["severity"],
	})
}

// trailingTimes returns the admit/discharge pair for a PV1 segment as the
// last two non-empty fields of the segment. Fixed positions 44/45 are not
// used: sampled feeds truncate trailing empties, so the heuristic tolerates
// variable-length segments at the cost of mis-attribution when optional
// trailing fields are populated.
func trailingTimes(fields []string) (admit, discharge string) {
	var nonempty []string
	for _, f := range fields {
		if f != "" {
			nonempty = append(nonempty, f)
		}
	}
	if len(nonempty) >= 2 {
		admit = nonempty[len(nonempty)-2]
		discharge = nonempty[len(nonempty)-1]
	}
	return admit, discharge
}
