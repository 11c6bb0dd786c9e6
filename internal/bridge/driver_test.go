package bridge

import "testing"

func TestValidDriverName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"gdb", true},
		{"garmin_txt", true},
		{"nmea", true},
		{"garmin_txt,snlen=10", true},
		{"OZI.WPT", true},
		{"v900,prefer_shortnames=1", true},
		{"", false},
		{"gdb; rm -rf /", false},
		{"gdb -x", false},
		{"driver\twith\ttabs", false},
		{"driver|pipe", false},
		{"$(whoami)", false},
	}

	for _, tc := range tests {
		if got := ValidDriverName(tc.name); got != tc.valid {
			t.Errorf("ValidDriverName(%q) = %v, want %v", tc.name, got, tc.valid)
		}
	}
}
