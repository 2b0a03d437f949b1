package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "bare US number", input: "212 555 1234", want: "+12125551234", wantOK: true},
		{name: "formatted US number", input: "(212) 555-1234", want: "+12125551234", wantOK: true},
		{name: "already E.164", input: "+12125551234", want: "+12125551234", wantOK: true},
		{name: "international number", input: "+442071838750", want: "+442071838750", wantOK: true},
		{name: "too short", input: "12345", wantOK: false},
		{name: "letters", input: "call me", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Normalize(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("+12125551234") {
		t.Fatal("expected +12125551234 to be valid")
	}
	if IsValid("not a number") {
		t.Fatal("expected garbage to be invalid")
	}
}
