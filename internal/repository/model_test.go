package repository

import (
	"testing"
)

func TestApplyDefaults_NilCollections(t *testing.T) {
	doc := DataDocument{
		1: {Username: "alice"},
		2: nil,
	}

	doc.ApplyDefaults()

	if _, ok := doc[2]; ok {
		t.Error("expected nil user entry to be dropped")
	}
	if doc[1].TrackedCities == nil {
		t.Error("expected TrackedCities to be initialized")
	}
	if doc[1].CityOrder == nil || len(doc[1].CityOrder) != 0 {
		t.Errorf("expected empty CityOrder, got %v", doc[1].CityOrder)
	}
}

func TestApplyDefaults_RepairsCityOrder(t *testing.T) {
	u := &User{
		Username: "alice",
		TrackedCities: map[string]*City{
			"Paris":  {},
			"Berlin": {},
			"Oslo":   {},
			"Gone":   nil,
		},
		CityOrder: []string{"Paris", "Unknown", "Paris", "Gone"},
	}

	u.applyDefaults()

	want := []string{"Paris", "Berlin", "Oslo"}
	if len(u.CityOrder) != len(want) {
		t.Fatalf("expected order %v, got %v", want, u.CityOrder)
	}
	for i := range want {
		if u.CityOrder[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, u.CityOrder)
			break
		}
	}
	if _, ok := u.TrackedCities["Gone"]; ok {
		t.Error("expected nil city entry to be dropped")
	}
}

func TestSortedIDs(t *testing.T) {
	doc := DataDocument{3: {}, 1: {}, 2: {}}
	ids := doc.SortedIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("expected [1 2 3], got %v", ids)
	}
}

func TestUsernameTaken_CaseSensitive(t *testing.T) {
	doc := DataDocument{1: {Username: "Alice"}}

	if !doc.UsernameTaken("Alice") {
		t.Error("expected exact match to be taken")
	}
	if doc.UsernameTaken("alice") {
		t.Error("expected different case to be free")
	}
}

func TestAreDataDocumentsEqual(t *testing.T) {
	a := createTestDataDocument()
	b := createTestDataDocument()

	if !AreDataDocumentsEqual(a, b) {
		t.Error("expected identical documents to be equal")
	}

	b[1].TrackedCities["Kazan"].Latitude = 0
	if AreDataDocumentsEqual(a, b) {
		t.Error("expected documents with different coordinates to differ")
	}

	if !AreDataDocumentsEqual(nil, DataDocument{}) {
		t.Error("expected nil and empty documents to be equal")
	}
	if AreDataDocumentsEqual(nil, a) {
		t.Error("expected nil and non-empty documents to differ")
	}
}
