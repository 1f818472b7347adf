package domain_test

import (
	"bytes"
	"testing"

	"msgcrypt/internal/domain"
)

func TestAAD_BindsEveryField(t *testing.T) {
	base := domain.MessageMetadata{
		KeyID:     7,
		MessageID: "m1",
		ChatID:    "c1",
		SenderID:  "alice",
	}

	variants := []domain.MessageMetadata{
		{KeyID: 8, MessageID: "m1", ChatID: "c1", SenderID: "alice"},
		{KeyID: 7, MessageID: "m2", ChatID: "c1", SenderID: "alice"},
		{KeyID: 7, MessageID: "m1", ChatID: "c2", SenderID: "alice"},
		{KeyID: 7, MessageID: "m1", ChatID: "c1", SenderID: "bob"},
	}
	for i, v := range variants {
		if bytes.Equal(base.AAD(), v.AAD()) {
			t.Fatalf("variant %d: field change did not change the AAD", i)
		}
	}
}

func TestAAD_FieldBoundariesCannotShift(t *testing.T) {
	// Without length prefixes these two would encode identically.
	a := domain.MessageMetadata{MessageID: "ab", ChatID: "c"}
	b := domain.MessageMetadata{MessageID: "a", ChatID: "bc"}
	if bytes.Equal(a.AAD(), b.AAD()) {
		t.Fatal("field boundary shifted between components")
	}
}

func TestGroupSizeStatusFor_Thresholds(t *testing.T) {
	cases := map[int]domain.GroupSizeStatus{
		0:   domain.GroupSizeOptimal,
		100: domain.GroupSizeOptimal,
		250: domain.GroupSizeOptimal,
		251: domain.GroupSizeGood,
		400: domain.GroupSizeGood,
		401: domain.GroupSizeWarning,
		499: domain.GroupSizeWarning,
		500: domain.GroupSizeAtLimit,
	}
	for count, want := range cases {
		if got := domain.GroupSizeStatusFor(count); got != want {
			t.Fatalf("count %d: got %s, want %s", count, got, want)
		}
	}
}
