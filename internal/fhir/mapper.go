// Package fhir maps the decoded HL7 IR into FHIR R4 resources and assembles
// them into a collection bundle. Resources are plain JSON-object maps: the
// bundle boundary is JSON shape, not generated structs, and callers serialize
// it directly.
package fhir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
)

// MRNSystem is the identifier system for source-system medical record numbers.
const MRNSystem = "http://hospital.example.org/mrn"

const (
	actCodeSystem        = "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	loincSystem          = "http://loinc.org"
	interpretationSystem = "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation"
	eventTypeSystem      = "http://hl7.org/fhir/v2/0003"
	roleCodeSystem       = "http://terminology.hl7.org/CodeSystem/v3-RoleCode"
)

// Resource is a FHIR resource in JSON-object shape.
type Resource = map[string]interface{}

// PatientResource builds the Patient resource. The resource id is derived
// deterministically from the MRN (name-based UUID in the DNS namespace), so
// repeated conversions of messages carrying the same MRN yield the same
// patient id across independent runs. Every other resource id in this
// package is random per call.
func PatientResource(p *hl7v2.PatientRecord) Resource {
	res := Resource{
		"resourceType": "Patient",
		"id":           PatientID(p.MRN),
		"identifier": []interface{}{
			Resource{"system": MRNSystem, "value": p.MRN},
		},
		"name": []interface{}{
			Resource{"family": p.Family, "given": []interface{}{p.Given}},
		},
		"gender": mapGender(p.Sex),
	}
	// Fixed-width slicing, no calendar validation. Short or absent DOB is
	// omitted rather than mangled.
	if len(p.DOB) >= 8 {
		res["birthDate"] = p.DOB[0:4] + "-" + p.DOB[4:6] + "-" + p.DOB[6:8]
	}
	return res
}

// PatientID returns the deterministic patient resource id for an MRN.
func PatientID(mrn string) string {
	return "patient-" + uuid.NewSHA1(uuid.NameSpaceDNS, []byte(mrn)).String()
}

// mapGender collapses the HL7 administrative sex code into a FHIR gender.
// Everything other than F maps to male, including unknown and unspecified
// codes; this mirrors the source system's feed contract.
func mapGender(sex string) string {
	if sex == "F" {
		return "female"
	}
	return "male"
}

// EncounterResource builds the Encounter resource from PV1 plus the optional
// EVN event. The encounter id is random per call.
func EncounterResource(enc *hl7v2.EncounterRecord, evn *hl7v2.EventRecord, patientID string) Resource {
	classCode := enc.PatientClass
	if classCode == "" {
		classCode = "O"
	}

	status := "in-progress"
	if enc.DischargeTime != "" {
		status = "finished"
	}

	res := Resource{
		"resourceType": "Encounter",
		"id":           "enc-" + uuid.New().String(),
		"status":       status,
		"class": Resource{
			"system": actCodeSystem,
			"code":   mapPatientClass(classCode),
		},
		"subject": reference("Patient", patientID),
	}

	period := Resource{}
	if start := formatTimestamp(enc.AdmitTime); start != "" {
		period["start"] = start
	}
	if end := formatTimestamp(enc.DischargeTime); end != "" {
		period["end"] = end
	}
	res["period"] = period

	if enc.Location != "" {
		res["location"] = []interface{}{
			Resource{"location": Resource{"display": enc.Location}},
		}
	}
	if enc.AttendingDoctor != "" {
		res["participant"] = []interface{}{
			Resource{"individual": Resource{"display": enc.AttendingDoctor}},
		}
	}
	if evn != nil && evn.EventType != "" {
		res["type"] = []interface{}{
			Resource{"coding": []interface{}{
				Resource{"system": eventTypeSystem, "code": evn.EventType},
			}},
		}
	}

	return res
}

// mapPatientClass maps the HL7 patient class to a FHIR v3-ActCode encounter
// class. Unrecognized classes default to ambulatory.
func mapPatientClass(code string) string {
	switch code {
	case "I":
		return "IMP"
	case "O":
		return "AMB"
	case "E":
		return "EMER"
	default:
		return "AMB"
	}
}

// ObservationResource builds one Observation from an OBX record. A declared
// numeric value that does not parse as a number is the one field-level hard
// failure in the mapper; everything else degrades to omitted elements.
func ObservationResource(obx hl7v2.ObservationRecord, patientID, encounterID string) (Resource, error) {
	res := Resource{
		"resourceType": "Observation",
		"id":           "obs-" + uuid.New().String(),
		"status":       "final",
		"code": Resource{
			"coding": []interface{}{
				Resource{"system": loincSystem, "code": obx.Code, "display": obx.Text},
			},
		},
		"subject": reference("Patient", patientID),
	}
	if encounterID != "" {
		res["encounter"] = reference("Encounter", encounterID)
	}

	if obx.ValueType == "NM" && obx.Value != "" {
		v, err := strconv.ParseFloat(obx.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("fhir: observation %s declares numeric type but value %q is not a number", obx.Code, obx.Value)
		}
		res["valueQuantity"] = Resource{"value": v, "unit": obx.Unit}
	} else {
		res["valueString"] = obx.Value
	}

	if low, high, ok := parseRange(obx.RefRange); ok {
		res["referenceRange"] = []interface{}{
			Resource{
				"low":  Resource{"value": low},
				"high": Resource{"value": high},
			},
		}
	}

	if obx.Flag != "" {
		res["interpretation"] = []interface{}{
			Resource{"coding": []interface{}{
				Resource{"system": interpretationSystem, "code": obx.Flag},
			}},
		}
	}

	return res, nil
}

// RelatedPersonResource builds one RelatedPerson from an NK1 record. Absent
// source fields degrade to text-only or omitted sub-elements.
func RelatedPersonResource(rp hl7v2.RelatedPersonRecord, patientID string) Resource {
	res := Resource{
		"resourceType": "RelatedPerson",
		"id":           "related-" + uuid.New().String(),
		"patient":      reference("Patient", patientID),
	}

	switch {
	case rp.Family != "" || rp.Given != "":
		name := Resource{}
		if rp.Family != "" {
			name["family"] = rp.Family
		}
		if rp.Given != "" {
			name["given"] = []interface{}{rp.Given}
		}
		res["name"] = []interface{}{name}
	case rp.RawName != "":
		res["name"] = []interface{}{Resource{"text": rp.RawName}}
	}

	if rp.RelationshipCode != "" {
		rel := Resource{
			"coding": []interface{}{
				Resource{"system": roleCodeSystem, "code": rp.RelationshipCode},
			},
		}
		if rp.RelationshipText != "" {
			rel["text"] = rp.RelationshipText
		}
		res["relationship"] = []interface{}{rel}
	}

	if rp.Phone != "" {
		res["telecom"] = []interface{}{
			Resource{"system": "phone", "value": rp.Phone},
		}
	}

	return res
}

// AllergyResource builds one AllergyIntolerance from an AL1 record.
func AllergyResource(al hl7v2.AllergyRecord, patientID string) Resource {
	res := Resource{
		"resourceType": "AllergyIntolerance",
		"id":           "allergy-" + uuid.New().String(),
		"patient":      reference("Patient", patientID),
		"code":         Resource{"text": al.Description},
	}

	if al.Reaction != "" || al.Severity != "" {
		reaction := Resource{}
		if al.Reaction != "" {
			reaction["manifestation"] = []interface{}{
				Resource{"text": al.Reaction},
			}
		}
		if sev := mapSeverity(al.Severity); sev != "" {
			reaction["severity"] = sev
		}
		if len(reaction) > 0 {
			res["reaction"] = []interface{}{reaction}
		}
	}

	return res
}

// mapSeverity maps the AL1 severity code (HL7 table 0128) to the FHIR
// reaction severity value set. Unknown codes are omitted.
func mapSeverity(code string) string {
	switch strings.ToUpper(code) {
	case "SV":
		return "severe"
	case "MO":
		return "moderate"
	case "MI":
		return "mild"
	default:
		return ""
	}
}

// parseRange splits a "low-high" reference range on the first hyphen. Both
// halves must parse as numbers; anything else (no hyphen, extra hyphens on
// the low side, a negative lower bound) degrades silently to no range.
func parseRange(s string) (low, high float64, ok bool) {
	if s == "" || !strings.Contains(s, "-") {
		return 0, 0, false
	}
	parts := strings.SplitN(s, "-", 2)
	low, errLow := strconv.ParseFloat(parts[0], 64)
	high, errHigh := strconv.ParseFloat(parts[1], 64)
	if errLow != nil || errHigh != nil {
		return 0, 0, false
	}
	return low, high, true
}

// formatTimestamp reformats a 12-14 digit HL7 timestamp to an ISO-8601 local
// date-time string, defaulting seconds to "00" when the timestamp is only 12
// digits. Values that are not plausible HL7 timestamps (the PV1 trailing
// field heuristic can capture arbitrary strings) yield "" and the caller
// omits the element.
func formatTimestamp(ts string) string {
	if len(ts) < 12 || !allDigits(ts) {
		return ""
	}
	seconds := "00"
	if len(ts) >= 14 {
		seconds = ts[12:14]
	}
	return fmt.Sprintf("%s-%s-%sT%s:%s:%s", ts[0:4], ts[4:6], ts[6:8], ts[8:10], ts[10:12], seconds)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func reference(resourceType, id string) Resource {
	return Resource{"reference": resourceType + "/" + id}
}
