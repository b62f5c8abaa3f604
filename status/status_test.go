package status_test

import (
	"testing"

	"github.com/a15hv/armvisor/status"
)

func TestStringNotEmpty(t *testing.T) {
	for k := status.Success; k <= status.Unknown; k++ {
		if status.Kind(k).String() == "" {
			t.Errorf("Kind(%d).String() is empty", k)
		}
	}
}

func TestOK(t *testing.T) {
	if !status.Success.OK() {
		t.Error("Success should be OK")
	}

	if !status.Ignored.OK() {
		t.Error("Ignored should be OK")
	}

	if status.BadAccess.OK() {
		t.Error("BadAccess should not be OK")
	}
}
