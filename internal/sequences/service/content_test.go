package service

import (
	"strings"
	"testing"

	leaddomain "leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequences/domain"
)

func strPtr(s string) *string { return &s }

func TestRenderStep(t *testing.T) {
	lead := &leaddomain.Lead{
		Email:     "jane@acme.io",
		FirstName: strPtr("Jane"),
		Company:   strPtr("Acme"),
	}

	t.Run("first step is the opener", func(t *testing.T) {
		content, err := renderStep(lead, domain.TypeAdvanced, 1, 5)
		if err != nil {
			t.Fatal(err)
		}
		if content.Subject != "Welcome aboard" {
			t.Fatalf("subject = %q", content.Subject)
		}
		if !strings.Contains(content.Body, "Hi Jane,") {
			t.Fatalf("body missing greeting: %q", content.Body)
		}
		if !strings.Contains(content.Body, "Acme") {
			t.Fatalf("body missing company: %q", content.Body)
		}
	})

	t.Run("middle steps carry their position", func(t *testing.T) {
		content, err := renderStep(lead, domain.TypeAdvanced, 3, 5)
		if err != nil {
			t.Fatal(err)
		}
		if content.Subject != "Following up (3 of 5)" {
			t.Fatalf("subject = %q", content.Subject)
		}
		if !strings.Contains(content.Body, "(3 of 5)") {
			t.Fatalf("body missing position: %q", content.Body)
		}
	})

	t.Run("final step is the closer", func(t *testing.T) {
		content, err := renderStep(lead, domain.TypeBasic, 3, 3)
		if err != nil {
			t.Fatal(err)
		}
		if content.Subject != "One last thing before we wrap up" {
			t.Fatalf("subject = %q", content.Subject)
		}
		if !strings.Contains(content.Body, "last note") {
			t.Fatalf("body is not the closer: %q", content.Body)
		}
	})

	t.Run("missing fields fall back gracefully", func(t *testing.T) {
		bare := &leaddomain.Lead{Email: "someone@example.com"}
		content, err := renderStep(bare, domain.TypeBasic, 1, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(content.Body, "Hi there,") {
			t.Fatalf("body missing fallback greeting: %q", content.Body)
		}
		if !strings.Contains(content.Body, "your team") {
			t.Fatalf("body missing fallback company: %q", content.Body)
		}
	})
}
