package lograte

import (
	"testing"
	"time"
)

func TestAllowOncePerWindow(t *testing.T) {
	l := New(time.Hour)
	if !l.Allow("ep1") {
		t.Fatalf("first Allow should succeed")
	}
	if l.Allow("ep1") {
		t.Fatalf("second Allow within window should be suppressed")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(time.Hour)
	if !l.Allow("ep1") {
		t.Fatalf("first Allow for ep1 should succeed")
	}
	if !l.Allow("ep2") {
		t.Fatalf("first Allow for ep2 should succeed independently")
	}
}

func TestAllowAfterWindowElapses(t *testing.T) {
	l := New(time.Millisecond)
	if !l.Allow("ep1") {
		t.Fatalf("first Allow should succeed")
	}
	time.Sleep(5 * time.Millisecond)
	if !l.Allow("ep1") {
		t.Fatalf("Allow after window elapsed should succeed")
	}
}
