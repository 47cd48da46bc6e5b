package models

import "testing"

func TestListingFilterNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   ListingFilter
		want ListingFilter
	}{
		{"zero value", ListingFilter{}, ListingFilter{Page: 1, Limit: 20, Status: ListingActive}},
		{"limit over cap", ListingFilter{Page: 2, Limit: 500}, ListingFilter{Page: 2, Limit: 20, Status: ListingActive}},
		{"negative page", ListingFilter{Page: -3, Limit: 10, Status: ListingPaused}, ListingFilter{Page: 1, Limit: 10, Status: ListingPaused}},
		{"max limit kept", ListingFilter{Page: 1, Limit: 50}, ListingFilter{Page: 1, Limit: 50, Status: ListingActive}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.in
			f.Normalize()
			if f != tc.want {
				t.Fatalf("got %+v, want %+v", f, tc.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	if ListingActive.Terminal() || ListingPaused.Terminal() {
		t.Fatal("open statuses must not be terminal")
	}
	if !ListingCompleted.Terminal() || !ListingCancelled.Terminal() {
		t.Fatal("closed statuses must be terminal")
	}
}

func TestConditionValid(t *testing.T) {
	for _, c := range []Condition{ConditionNew, ConditionOpened, ConditionUsed} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Condition("mint").Valid() || Condition("").Valid() {
		t.Fatal("unknown conditions accepted")
	}
}

func TestListingUpdateEmpty(t *testing.T) {
	if !(ListingUpdate{}).Empty() {
		t.Fatal("zero update should be empty")
	}
	q := 1
	if (ListingUpdate{Quantity: &q}).Empty() {
		t.Fatal("update with a field should not be empty")
	}
}
