package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("WG_TEST_INT", "abc")
	if got := Int("WG_TEST_INT", 7); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}
	t.Setenv("WG_TEST_INT", " 12 ")
	if got := Int("WG_TEST_INT", 7); got != 12 {
		t.Fatalf("want=12 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"on": true, "TRUE": true, "0": false, "off": false, "maybe": true, "": true}
	for raw, want := range cases {
		t.Setenv("WG_TEST_BOOL", raw)
		if got := Bool("WG_TEST_BOOL", true); got != want {
			t.Fatalf("%q: want=%v got=%v", raw, want, got)
		}
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("WG_TEST_SECS", "-3")
	if got := Seconds("WG_TEST_SECS", time.Minute); got != time.Minute {
		t.Fatalf("want=1m got=%v", got)
	}
	t.Setenv("WG_TEST_SECS", "30")
	if got := Seconds("WG_TEST_SECS", time.Minute); got != 30*time.Second {
		t.Fatalf("want=30s got=%v", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
	t.Setenv("ENVUTIL_FLOAT", "nope")
	if got := Float("ENVUTIL_FLOAT", 1); got != 1 {
		t.Fatalf("Float(bad): want=1 got=%v", got)
	}
}
