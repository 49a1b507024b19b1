// Package summary produces human-readable summaries of a converted FHIR
// bundle: a deterministic text rendering built locally, and an optional
// narrative generated by an external chat-completion service. Both treat the
// bundle as read-only input.
package summary

import (
	"fmt"
	"strings"
)

// Deterministic renders a plain-text clinical summary from a bundle without
// any external call. It is total over sparse bundles: missing elements
// degrade to placeholders, never panics.
func Deterministic(bundle map[string]interface{}) string {
	patient := firstResourceOfType(bundle, "Patient")

	name := "Unknown"
	dob := "Not provided"
	sex := "Not provided"
	if patient != nil {
		if n := patientName(patient); n != "" {
			name = n
		}
		if v, ok := getString(patient, "birthDate"); ok {
			dob = v
		}
		if v, ok := getString(patient, "gender"); ok {
			sex = v
		}
	}

	lines := []string{
		fmt.Sprintf("Patient: %s, DOB: %s, Sex: %s", name, dob, sex),
		"",
		"Lab Observations:",
	}

	for _, obs := range resourcesOfType(bundle, "Observation") {
		code := ""
		display := ""
		if coding := firstCoding(obs, "code"); coding != nil {
			code, _ = getString(coding, "code")
			display, _ = getString(coding, "display")
		}

		value := "N/A"
		unit := ""
		if vq, ok := getMap(obs, "valueQuantity"); ok {
			if v, exists := vq["value"]; exists {
				value = fmt.Sprintf("%v", v)
			}
			if u, ok := getString(vq, "unit"); ok {
				unit = u
			}
		} else if vs, ok := getString(obs, "valueString"); ok && vs != "" {
			value = vs
		}

		lines = append(lines, strings.TrimRight(fmt.Sprintf("- %s (%s): %s %s", display, code, value, unit), " "))
	}

	return strings.Join(lines, "\n")
}

// patientName renders "Given Family" from the first name entry, falling back
// to the text form.
func patientName(patient map[string]interface{}) string {
	names, ok := getArray(patient, "name")
	if !ok || len(names) == 0 {
		return ""
	}
	name, ok := names[0].(map[string]interface{})
	if !ok {
		return ""
	}

	family, _ := getString(name, "family")
	given := ""
	if givens, ok := getArray(name, "given"); ok && len(givens) > 0 {
		given, _ = givens[0].(string)
	}
	full := strings.TrimSpace(given + " " + family)
	if full != "" {
		return full
	}
	text, _ := getString(name, "text")
	return text
}

// firstResourceOfType returns the first bundle entry resource with the given
// type, or nil.
func firstResourceOfType(bundle map[string]interface{}, resourceType string) map[string]interface{} {
	for _, res := range resourcesOfType(bundle, resourceType) {
		return res
	}
	return nil
}

// resourcesOfType returns all bundle entry resources with the given type, in
// entry order.
func resourcesOfType(bundle map[string]interface{}, resourceType string) []map[string]interface{} {
	var out []map[string]interface{}
	entries, ok := getArray(bundle, "entry")
	if !ok {
		return nil
	}
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		res, ok := getMap(entry, "resource")
		if !ok {
			continue
		}
		if rt, _ := getString(res, "resourceType"); rt == resourceType {
			out = append(out, res)
		}
	}
	return out
}

// firstCoding returns the first coding of a CodeableConcept field, or nil.
func firstCoding(res map[string]interface{}, field string) map[string]interface{} {
	cc, ok := getMap(res, field)
	if !ok {
		return nil
	}
	codings, ok := getArray(cc, "coding")
	if !ok || len(codings) == 0 {
		return nil
	}
	coding, _ := codings[0].(map[string]interface{})
	return coding
}

func getString(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func getArray(m map[string]interface{}, key string) ([]interface{}, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]interface{})
	return arr, ok
}

func getMap(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	nested, ok := v.(map[string]interface{})
	return nested, ok
}
