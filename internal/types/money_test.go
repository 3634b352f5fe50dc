package types

import "testing"

func TestMoneyTimes(t *testing.T) {
	got := LKR(41).Times(3)
	if got.Amount != 123 || got.Currency != "LKR" {
		t.Fatalf("Times() = %+v, want 123 LKR", got)
	}
	if got := (Money{Amount: 5}).Times(2); got.Currency != DefaultCurrency {
		t.Fatalf("empty currency should default, got %q", got.Currency)
	}
}

func TestMoneyAdd(t *testing.T) {
	got := LKR(40).Add(LKR(2))
	if got.Amount != 42 {
		t.Fatalf("Add() = %d, want 42", got.Amount)
	}
}

func TestIDValid(t *testing.T) {
	if !NewID().Valid() {
		t.Fatal("NewID() should be a valid uuid")
	}
	if ID("not-a-uuid").Valid() {
		t.Fatal("garbage id reported valid")
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", CategoryNormal, false},
		{"normal", CategoryNormal, false},
		{" Semi-Luxury ", CategorySemiLuxury, false},
		{"super-luxury", CategorySuperLuxury, false},
		{"express", "", true},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseCategory(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
