package summary

import (
	"strings"
	"testing"
)

func testBundle() map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "collection",
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Patient",
					"birthDate":    "1990-01-01",
					"gender":       "female",
					"name": []interface{}{
						map[string]interface{}{
							"family": "Doe",
							"given":  []interface{}{"Jane"},
						},
					},
				},
			},
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Observation",
					"code": map[string]interface{}{
						"coding": []interface{}{
							map[string]interface{}{"code": "718-7", "display": "Hemoglobin"},
						},
					},
					"valueQuantity": map[string]interface{}{"value": 13.5, "unit": "g/dL"},
				},
			},
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Observation",
					"code": map[string]interface{}{
						"coding": []interface{}{
							map[string]interface{}{"code": "NOTE", "display": "Specimen Note"},
						},
					},
					"valueString": "slightly hemolyzed",
				},
			},
		},
	}
}

func TestDeterministic(t *testing.T) {
	got := Deterministic(testBundle())

	if !strings.HasPrefix(got, "Patient: Jane Doe, DOB: 1990-01-01, Sex: female") {
		t.Errorf("header line wrong:\n%s", got)
	}
	if !strings.Contains(got, "Lab Observations:") {
		t.Errorf("missing observations header:\n%s", got)
	}
	if !strings.Contains(got, "- Hemoglobin (718-7): 13.5 g/dL") {
		t.Errorf("missing numeric observation line:\n%s", got)
	}
	if !strings.Contains(got, "- Specimen Note (NOTE): slightly hemolyzed") {
		t.Errorf("missing text observation line:\n%s", got)
	}
}

func TestDeterministic_EmptyBundle(t *testing.T) {
	got := Deterministic(map[string]interface{}{"resourceType": "Bundle"})

	if !strings.HasPrefix(got, "Patient: Unknown, DOB: Not provided, Sex: Not provided") {
		t.Errorf("header line wrong:\n%s", got)
	}
	if strings.Contains(got, "- ") {
		t.Errorf("expected no observation lines:\n%s", got)
	}
}

func TestDeterministic_NameFallsBackToText(t *testing.T) {
	bundle := map[string]interface{}{
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{
					"resourceType": "Patient",
					"name": []interface{}{
						map[string]interface{}{"text": "Mary Smith"},
					},
				},
			},
		},
	}
	got := Deterministic(bundle)
	if !strings.Contains(got, "Patient: Mary Smith") {
		t.Errorf("text name not used:\n%s", got)
	}
}

func TestDeterministic_SparseObservation(t *testing.T) {
	bundle := map[string]interface{}{
		"entry": []interface{}{
			map[string]interface{}{
				"resource": map[string]interface{}{"resourceType": "Observation"},
			},
		},
	}
	got := Deterministic(bundle)
	if !strings.Contains(got, "-  (): N/A") {
		t.Errorf("sparse observation rendering:\n%s", got)
	}
}
