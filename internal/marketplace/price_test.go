package marketplace

import (
	"errors"
	"math/big"
	"testing"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"0", "0.00"},
		{"12500000000000000000", "12.50"},
		{"1000000000000000000", "1.00"},
		{"1234567890000000000", "1.23"},
		{"5", "0.00"},
	}
	for _, tt := range tests {
		base, _ := new(big.Int).SetString(tt.base, 10)
		if got := FormatPrice(base, 18); got != tt.want {
			t.Errorf("FormatPrice(%s)=%q want %q", tt.base, got, tt.want)
		}
	}
	if got := FormatPrice(nil, 18); got != "0.00" {
		t.Errorf("FormatPrice(nil)=%q", got)
	}
}

func TestParsePrice(t *testing.T) {
	got, err := ParsePrice("12.5", 18)
	if err != nil {
		t.Fatalf("ParsePrice: %v", err)
	}
	if got.String() != "12500000000000000000" {
		t.Fatalf("got %s", got)
	}

	got, err = ParsePrice(" 3 ", 6)
	if err != nil || got.String() != "3000000" {
		t.Fatalf("got %v, %v", got, err)
	}

	for _, bad := range []string{"", "abc", "-1", "0.0000001"} {
		if _, err := ParsePrice(bad, 6); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("ParsePrice(%q) err=%v want ErrInvalidPrice", bad, err)
		}
	}
}
