package vmid_test

import (
	"testing"

	"github.com/a15hv/armvisor/vmid"
)

func TestValid(t *testing.T) {
	cases := []struct {
		v    vmid.VMID
		n    int
		want bool
	}{
		{0, 2, true},
		{1, 2, true},
		{2, 2, false},
		{vmid.InvalidVMID, 2, false},
		{0, 0, false},
	}

	for _, c := range cases {
		if got := vmid.Valid(c.v, c.n); got != c.want {
			t.Errorf("Valid(%d, %d) = %v, want %v", c.v, c.n, got, c.want)
		}
	}
}
