package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		pred func(error) bool
		name string
	}{
		{NewNotFound("op", "listing", 7), IsNotFound, "not found"},
		{NewForbidden("op", "nope"), IsForbidden, "forbidden"},
		{NewState("op", "already handled"), IsState, "state"},
		{NewValidation("op", "bad input", nil), IsValidation, "validation"},
		{NewStore("op", "commit failed", errors.New("boom")), IsStore, "store"},
	}
	preds := []func(error) bool{IsNotFound, IsForbidden, IsState, IsValidation, IsStore}

	for i, tc := range cases {
		if !tc.pred(tc.err) {
			t.Errorf("%s: own predicate false", tc.name)
		}
		for j, p := range preds {
			if i != j && p(tc.err) {
				t.Errorf("%s: matched foreign predicate %d", tc.name, j)
			}
		}
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", NewState("lifecycle.AcceptOffer", "offer already handled"))
	if !IsState(err) {
		t.Fatal("wrapped state error not recognized")
	}
	if IsState(errors.New("plain")) || IsState(nil) {
		t.Fatal("false positive")
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("deadlock found")
	err := NewStore("repo.setOfferStatus", "update failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
}
