package permission

import (
	"testing"

	"github.com/hookgate/hookgate/internal/guard"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name        string
		interactive bool
		def         guard.Policy
		want        Mode
	}{
		{"interactive always prompts", true, guard.PolicyBlock, Prompt},
		{"interactive prompts even for allow default", true, guard.PolicyAllow, Prompt},
		{"non-interactive block default", false, guard.PolicyBlock, Block},
		{"non-interactive allow default", false, guard.PolicyAllow, Allow},
		{"empty default is block", false, "", Block},
	}
	for _, tc := range cases {
		if got := Resolve(tc.interactive, tc.def); got != tc.want {
			t.Errorf("%s: Resolve(%v, %q) = %q, want %q", tc.name, tc.interactive, tc.def, got, tc.want)
		}
	}
}
