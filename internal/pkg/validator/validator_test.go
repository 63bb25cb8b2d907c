package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	if _, ok := IsValidDate("2025-11-03"); !ok {
		t.Errorf("IsValidDate(2025-11-03) = false, want true")
	}
	for _, s := range []string{"2025-13-01", "03-11-2025", "2025/11/03", ""} {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidTimeHM(t *testing.T) {
	valid := []string{"00:00", "09:00", "23:59"}
	invalid := []string{"24:00", "9:00", "09:60", "09:00:00", ""}
	for _, s := range valid {
		if !IsValidTimeHM(s) {
			t.Errorf("IsValidTimeHM(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidTimeHM(s) {
			t.Errorf("IsValidTimeHM(%q) = true, want false", s)
		}
	}
}

func TestIsValidHMS(t *testing.T) {
	valid := []string{"00:15:00", "07:45:00", "123:00:59"}
	invalid := []string{"00:60:00", "00:00:60", "0:15:00", "00:15", "abc", ""}
	for _, s := range valid {
		if !IsValidHMS(s) {
			t.Errorf("IsValidHMS(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidHMS(s) {
			t.Errorf("IsValidHMS(%q) = true, want false", s)
		}
	}
}

func TestCoordinateRanges(t *testing.T) {
	if !IsValidLatitude(4.624335) || !IsValidLongitude(-74.063644) {
		t.Error("valid Bogota coordinates rejected")
	}
	if IsValidLatitude(90.1) || IsValidLatitude(-90.1) {
		t.Error("out-of-range latitude accepted")
	}
	if IsValidLongitude(180.1) || IsValidLongitude(-180.1) {
		t.Error("out-of-range longitude accepted")
	}
}
