package domain

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusCold, StatusContacted, StatusQualified, StatusWarm, StatusConverted} {
		if !s.Valid() {
			t.Errorf("Valid(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{"customer", "unqualified", "hot", ""} {
		if s.Valid() {
			t.Errorf("Valid(%s) = true, want false", s)
		}
	}
}
