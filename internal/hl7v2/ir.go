package hl7v2

// ParsedMessage is the decoded-but-unmapped form of one HL7 message. It is
// built once per conversion and never mutated afterwards; the mapper and any
// raw-IR output both read from the same instance.
type ParsedMessage struct {
	Patient        *PatientRecord        `json:"patient"`
	Encounter      *EncounterRecord      `json:"encounter,omitempty"`
	Event          *EventRecord          `json:"event,omitempty"`
	Orders         []OrderRecord         `json:"orders"`
	Observations   []ObservationRecord   `json:"observations"`
	RelatedPersons []RelatedPersonRecord `json:"related_persons,omitempty"`
	Allergies      []AllergyRecord       `json:"allergies,omitempty"`
}

// PatientRecord holds the PID fields the mapper consumes. MRN is the durable
// source-system identifier that patient identity is derived from.
type PatientRecord struct {
	MRN    string `json:"mrn"`
	Family string `json:"family"`
	Given  string `json:"given"`
	DOB    string `json:"dob"` // YYYYMMDD
	Sex    string `json:"sex"` // M/F/other
}

// EncounterRecord holds the PV1 fields. AdmitTime and DischargeTime are the
// last two non-empty fields of the segment, not fixed positions 44/45.
type EncounterRecord struct {
	SetID           string `json:"set_id"`
	PatientClass    string `json:"patient_class"`
	Location        string `json:"location"`
	AttendingDoctor string `json:"attending_doctor"`
	HospitalService string `json:"hospital_service"`
	VisitNumber     string `json:"visit_number"`
	AdmitTime       string `json:"admit_time"`
	DischargeTime   string `json:"discharge_time"`
}

// EventRecord holds the EVN fields.
type EventRecord struct {
	EventType         string `json:"event_type"`
	RecordedTime      string `json:"recorded_time"`
	EventOccurredTime string `json:"event_occurred_time"`
}

// OrderRecord holds the OBR fields. Only the first OBR in a message is
// retained; later ones are ignored.
type OrderRecord struct {
	PlacerOrderNumber string `json:"placer_order_number"`
	FillerOrderNumber string `json:"filler_order_number"`
	TestCode          string `json:"test_code"`
	TestName          string `json:"test_name"`
	SpecimenTime      string `json:"specimen_time"`
	ResultTime        string `json:"result_time"`
	OrderingProvider  string `json:"ordering_provider"`
}

// ObservationRecord holds one OBX result.
type ObservationRecord struct {
	Code      string `json:"code"`
	Text      string `json:"text"`
	ValueType string `json:"value_type"` // NM = numeric, anything else = text
	Value     string `json:"value"`
	Unit      string `json:"unit"`
	RefRange  string `json:"ref_range"` // "low-high"
	Flag      string `json:"flag"`      // H/L/empty
}

// RelatedPersonRecord holds one NK1 next-of-kin entry. When the name field
// has no caret components, RawName carries the unsplit value.
type RelatedPersonRecord struct {
	Family           string `json:"family,omitempty"`
	Given            string `json:"given,omitempty"`
	RawName          string `json:"raw_name,omitempty"`
	RelationshipCode string `json:"relationship_code,omitempty"`
	RelationshipText string `json:"relationship_text,omitempty"`
	Phone            string `json:"phone,omitempty"`
}

// AllergyRecord holds one AL1 entry.
type AllergyRecord struct {
	Description string `json:"description"`
	Reaction    string `json:"reaction,omitempty"`
	Severity    string `json:"severity,omitempty"`
}
