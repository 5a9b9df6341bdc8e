package courier

import "testing"

func TestEligible(t *testing.T) {
	for _, tc := range []struct {
		status AccountStatus
		want   bool
	}{
		{AccountPending, false},
		{AccountApproved, true},
		{AccountBlocked, false},
	} {
		p := &Profile{Status: tc.status}
		if got := p.Eligible(); got != tc.want {
			t.Errorf("Eligible() with %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}
