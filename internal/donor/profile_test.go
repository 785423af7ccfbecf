package donor

import "testing"

func TestParseBloodGroup(t *testing.T) {
	cases := []struct {
		in   string
		want BloodGroup
		ok   bool
	}{
		{"A+", APositive, true},
		{"a+", APositive, true},
		{" o- ", ONegative, true},
		{"ab-", ABNegative, true},
		{"bombay", Bombay, true},
		{"C+", "", false},
		{"", "", false},
		{"A", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseBloodGroup(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseBloodGroup(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBloodGroupsCoverCanonicalEight(t *testing.T) {
	want := map[BloodGroup]bool{
		APositive: false, ANegative: false,
		BPositive: false, BNegative: false,
		ABPositive: false, ABNegative: false,
		OPositive: false, ONegative: false,
	}
	for _, bg := range BloodGroups {
		if _, ok := want[bg]; ok {
			want[bg] = true
		}
	}
	for bg, seen := range want {
		if !seen {
			t.Fatalf("canonical group %q missing from BloodGroups", bg)
		}
	}
}
