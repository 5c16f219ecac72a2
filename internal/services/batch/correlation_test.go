package batch

import (
	"errors"
	"testing"
)

func TestCorrelationID_RoundTrip(t *testing.T) {
	cid, err := NewCorrelationID("enrich", "c0a80001-0000-4000-8000-000000000001", "profile", 7)
	if err != nil {
		t.Fatalf("Failed to build correlation id: %v", err)
	}

	encoded := cid.String()
	if encoded != "enrich_c0a80001-0000-4000-8000-000000000001_profile_7" {
		t.Errorf("Unexpected encoding: %s", encoded)
	}

	decoded, err := ParseCorrelationID(encoded)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if decoded != cid {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, cid)
	}
}

func TestNewCorrelationID_RejectsDelimiterInComponents(t *testing.T) {
	cases := []struct {
		name                          string
		prefix, entityID, subTask     string
		ordinal                       int
	}{
		{"delimiter in prefix", "contact_enrich", "e1", "profile", 0},
		{"delimiter in entity id", "enrich", "entity_1", "profile", 0},
		{"delimiter in sub-task", "enrich", "e1", "company_profile", 0},
		{"empty prefix", "", "e1", "profile", 0},
		{"empty entity id", "enrich", "", "profile", 0},
		{"empty sub-task", "enrich", "e1", "", 0},
		{"negative ordinal", "enrich", "e1", "profile", -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCorrelationID(tc.prefix, tc.entityID, tc.subTask, tc.ordinal); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}
}

func TestParseCorrelationID_Failures(t *testing.T) {
	cases := []string{
		"",
		"garbage",
		"enrich_e1_profile",              // 3 segments
		"enrich_e1_profile_0_extra",      // 5 segments
		"enrich__profile_0",              // empty segment
		"enrich_e1_profile_notanumber",   // non-numeric ordinal
		"enrich_e1_profile_-3",           // negative ordinal
	}

	for _, input := range cases {
		if _, err := ParseCorrelationID(input); err == nil {
			t.Errorf("Expected decode failure for %q", input)
		} else if !errors.Is(err, ErrBadCorrelation) {
			t.Errorf("Expected ErrBadCorrelation for %q, got %v", input, err)
		}
	}
}

func TestParseCorrelationID_EntityIDWithHyphens(t *testing.T) {
	decoded, err := ParseCorrelationID("social_3f2b8c44-9d1e-4f6a-b2c3-1a2b3c4d5e6f_linkedin_12")
	if err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if decoded.EntityID != "3f2b8c44-9d1e-4f6a-b2c3-1a2b3c4d5e6f" {
		t.Errorf("Wrong entity id: %s", decoded.EntityID)
	}
	if decoded.SubTaskTag != "linkedin" || decoded.Ordinal != 12 {
		t.Errorf("Wrong components: %+v", decoded)
	}
}
