package util

import (
	"regexp"
	"testing"
)

func TestNewID_FormatAndUniqueness(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	a, b := NewID(), NewID()
	if !re.MatchString(a) {
		t.Fatalf("NewID format mismatch: %s", a)
	}
	if a == b {
		t.Fatalf("NewID should be unique: %s", a)
	}
}
