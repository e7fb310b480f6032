package common

import (
	"math"
	"testing"
)

func TestMetersToFeet(t *testing.T) {
	if ft := MetersToFeet(0.3048); math.Abs(ft-1) > 1e-12 {
		t.Errorf("MetersToFeet(0.3048) = %f, want 1", ft)
	}
	if ft := MetersToFeet(1000); math.Abs(ft-3280.8399) > 1e-4 {
		t.Errorf("MetersToFeet(1000) = %f, want 3280.8399", ft)
	}
}

func TestPascalToMillibar(t *testing.T) {
	if mb := PascalToMillibar(101325); mb != 1013.25 {
		t.Errorf("PascalToMillibar(101325) = %f, want 1013.25", mb)
	}
}
