package locale

import (
	"reflect"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantTZ   string
		wantLang string
		wantOK   bool
	}{
		{name: "belgium", code: "BE", wantTZ: "Europe/Brussels", wantLang: "nl", wantOK: true},
		{name: "lowercase netherlands", code: " nl ", wantTZ: "Europe/Amsterdam", wantLang: "nl", wantOK: true},
		{name: "luxembourg", code: "LU", wantTZ: "Europe/Luxembourg", wantLang: "fr", wantOK: true},
		{name: "unknown", code: "ZZ", wantOK: false},
		{name: "empty", code: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.DefaultTimezone != tt.wantTZ || got.DefaultLanguage != tt.wantLang {
				t.Errorf("Lookup(%q) = %+v", tt.code, got)
			}
		})
	}
}

func TestTimezoneFor(t *testing.T) {
	if got := TimezoneFor("BE", "UTC"); got != "Europe/Brussels" {
		t.Errorf("TimezoneFor(BE) = %q", got)
	}
	if got := TimezoneFor("ZZ", "Europe/Brussels"); got != "Europe/Brussels" {
		t.Errorf("TimezoneFor(ZZ) = %q, want fallback", got)
	}
	if got := LanguageFor("ZZ", "en"); got != "en" {
		t.Errorf("LanguageFor(ZZ) = %q, want fallback", got)
	}
}

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		wantName   string
		wantFailed []string
	}{
		{name: "first valid", candidates: []string{"Europe/Brussels", "UTC"}, wantName: "Europe/Brussels"},
		{name: "skips invalid", candidates: []string{"Mars/Olympus", "Europe/Amsterdam"}, wantName: "Europe/Amsterdam", wantFailed: []string{"Mars/Olympus"}},
		{name: "skips empty", candidates: []string{"", "Europe/Paris"}, wantName: "Europe/Paris"},
		{name: "all invalid", candidates: []string{"Nope/Nope"}, wantName: "UTC", wantFailed: []string{"Nope/Nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, failed := LoadLocation(tt.candidates...)
			if loc.String() != tt.wantName {
				t.Errorf("location = %s, want %s", loc, tt.wantName)
			}
			if !reflect.DeepEqual(failed, tt.wantFailed) {
				t.Errorf("failed = %v, want %v", failed, tt.wantFailed)
			}
		})
	}
}
