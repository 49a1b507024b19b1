package fhir

import (
	"testing"

	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
)

func entryTypes(bundle Resource) []string {
	var types []string
	for _, e := range bundle["entry"].([]interface{}) {
		res := e.(Resource)["resource"].(Resource)
		types = append(types, res["resourceType"].(string))
	}
	return types
}

func TestBundleFromMessage(t *testing.T) {
	msg := &hl7v2.ParsedMessage{
		Patient:   &hl7v2.PatientRecord{MRN: "123456", Family: "Doe", Given: "Jane", DOB: "19900101", Sex: "F"},
		Encounter: &hl7v2.EncounterRecord{PatientClass: "I", DischargeTime: "202401011700"},
		Observations: []hl7v2.ObservationRecord{
			{Code: "718-7", ValueType: "NM", Value: "13.5", Unit: "g/dL"},
			{Code: "NOTE", ValueType: "TX", Value: "ok"},
		},
		RelatedPersons: []hl7v2.RelatedPersonRecord{{Family: "Doe", Given: "John"}},
		Allergies:      []hl7v2.AllergyRecord{{Description: "Penicillin"}},
	}

	bundle, err := BundleFromMessage(msg)
	if err != nil {
		t.Fatalf("BundleFromMessage failed: %v", err)
	}

	if bundle["resourceType"] != "Bundle" || bundle["type"] != "collection" {
		t.Errorf("bundle header = %v/%v", bundle["resourceType"], bundle["type"])
	}

	want := []string{"Patient", "Encounter", "Observation", "Observation", "RelatedPerson", "AllergyIntolerance"}
	got := entryTypes(bundle)
	if len(got) != len(want) {
		t.Fatalf("entry types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry types = %v, want %v", got, want)
		}
	}

	// Observations reference the patient and encounter mapped in this call.
	entries := bundle["entry"].([]interface{})
	patient := entries[0].(Resource)["resource"].(Resource)
	encounter := entries[1].(Resource)["resource"].(Resource)
	obs := entries[2].(Resource)["resource"].(Resource)

	if obs["subject"].(Resource)["reference"] != "Patient/"+patient["id"].(string) {
		t.Errorf("observation subject = %v", obs["subject"])
	}
	if obs["encounter"].(Resource)["reference"] != "Encounter/"+encounter["id"].(string) {
		t.Errorf("observation encounter = %v", obs["encounter"])
	}
}

func TestBundleFromMessage_NoEncounter(t *testing.T) {
	msg := &hl7v2.ParsedMessage{
		Patient:      &hl7v2.PatientRecord{MRN: "1", Family: "Roe"},
		Observations: []hl7v2.ObservationRecord{{Code: "X", ValueType: "TX", Value: "v"}},
	}

	bundle, err := BundleFromMessage(msg)
	if err != nil {
		t.Fatalf("BundleFromMessage failed: %v", err)
	}
	got := entryTypes(bundle)
	if len(got) != 2 || got[0] != "Patient" || got[1] != "Observation" {
		t.Errorf("entry types = %v", got)
	}

	obs := bundle["entry"].([]interface{})[1].(Resource)["resource"].(Resource)
	if _, ok := obs["encounter"]; ok {
		t.Error("expected no encounter reference")
	}
}

func TestBundleFromMessage_NoPatient(t *testing.T) {
	if _, err := BundleFromMessage(&hl7v2.ParsedMessage{}); err == nil {
		t.Fatal("expected error for message without patient")
	}
	if _, err := BundleFromMessage(nil); err == nil {
		t.Fatal("expected error for nil message")
	}
}

func TestBundleFromMessage_BadObservationAborts(t *testing.T) {
	msg := &hl7v2.ParsedMessage{
		Patient:      &hl7v2.PatientRecord{MRN: "1"},
		Observations: []hl7v2.ObservationRecord{{Code: "X", ValueType: "NM", Value: "not-a-number"}},
	}
	bundle, err := BundleFromMessage(msg)
	if err == nil {
		t.Fatal("expected error for unparseable numeric value")
	}
	if bundle != nil {
		t.Error("expected no partial bundle on failure")
	}
}
