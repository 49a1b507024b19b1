package fhir

import (
	"fmt"

	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
)

// Assemble composes mapped resources into a single collection bundle. Entry
// order is fixed: patient first, then the encounter when present, then
// observations in source order, then related persons, then allergies. No
// deduplication and no reference resolution happen here; the mapper already
// assigned every id.
func Assemble(patient Resource, encounter Resource, observations, relatedPersons, allergies []Resource) Resource {
	entries := []interface{}{Resource{"resource": patient}}
	if encounter != nil {
		entries = append(entries, Resource{"resource": encounter})
	}
	for _, obs := range observations {
		entries = append(entries, Resource{"resource": obs})
	}
	for _, rp := range relatedPersons {
		entries = append(entries, Resource{"resource": rp})
	}
	for _, al := range allergies {
		entries = append(entries, Resource{"resource": al})
	}

	return Resource{
		"resourceType": "Bundle",
		"type":         "collection",
		"entry":        entries,
	}
}

// BundleFromMessage maps a decoded message to FHIR resources and assembles
// the bundle. It fails only on the mapper's hard failures (no patient
// upstream, unparseable numeric observation value); no partial bundle is
// returned on failure.
func BundleFromMessage(msg *hl7v2.ParsedMessage) (Resource, error) {
	if msg == nil || msg.Patient == nil {
		return nil, fmt.Errorf("fhir: message has no patient record")
	}

	patient := PatientResource(msg.Patient)
	patientID := patient["id"].(string)

	var encounter Resource
	encounterID := ""
	if msg.Encounter != nil {
		encounter = EncounterResource(msg.Encounter, msg.Event, patientID)
		encounterID = encounter["id"].(string)
	}

	observations := make([]Resource, 0, len(msg.Observations))
	for _, obx := range msg.Observations {
		obs, err := ObservationResource(obx, patientID, encounterID)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	relatedPersons := make([]Resource, 0, len(msg.RelatedPersons))
	for _, rp := range msg.RelatedPersons {
		relatedPersons = append(relatedPersons, RelatedPersonResource(rp, patientID))
	}

	allergies := make([]Resource, 0, len(msg.Allergies))
	for _, al := range msg.Allergies {
		allergies = append(allergies, AllergyResource(al, patientID))
	}

	return Assemble(patient, encounter, observations, relatedPersons, allergies), nil
}
