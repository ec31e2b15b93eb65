package utils

import (
	"math"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in   string
		want uint
		ok   bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseID(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if FormatID(42) != "42" {
		t.Errorf("FormatID(42) = %q", FormatID(42))
	}
}

func TestParseOptionalFloat(t *testing.T) {
	if v, err := ParseOptionalFloat("  "); v != nil || err != nil {
		t.Errorf("blank: %v, %v", v, err)
	}
	if v, err := ParseOptionalFloat("12.5"); err != nil || *v != 12.5 {
		t.Errorf("12.5: %v, %v", v, err)
	}
	if _, err := ParseOptionalFloat("twelve"); err == nil {
		t.Error("expected error for non-numeric input")
	}
	if v, err := ParseOptionalFloat("NaN"); err != nil || !math.IsNaN(*v) {
		t.Errorf("NaN should parse and be left to validation: %v, %v", v, err)
	}
}

func TestStringToInt(t *testing.T) {
	if StringToInt(" 24 ") != 24 || StringToInt("x") != 0 {
		t.Error("StringToInt mismatch")
	}
}
