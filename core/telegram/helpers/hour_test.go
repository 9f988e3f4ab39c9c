package helpers

import "testing"

func TestParseHour(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"08:00", 8, true},
		{"8", 8, true},
		{"23:00", 23, true},
		{"0", 0, true},
		{" 10:00 ", 10, true},
		{"24:00", 0, false},
		{"-1", 0, false},
		{"08:30", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseHour(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseHour(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestFormatHour(t *testing.T) {
	if got := FormatHour(8); got != "08:00" {
		t.Errorf("FormatHour(8) = %q", got)
	}
	if got := FormatHour(23); got != "23:00" {
		t.Errorf("FormatHour(23) = %q", got)
	}
}
