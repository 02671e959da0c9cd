package textutil

import (
	"reflect"
	"testing"
)

func TestNaturalCompare(t *testing.T) {
	t.Run("numeric runs compare by value", func(t *testing.T) {
		if NaturalCompare("10A", "125A") >= 0 {
			t.Fatalf("expected 10A before 125A")
		}
		if NaturalCompare("125A", "10A") <= 0 {
			t.Fatalf("expected 125A after 10A")
		}
		if NaturalCompare("15A", "15A") != 0 {
			t.Fatalf("expected equal strings to compare equal")
		}
	})

	t.Run("case-insensitive on letters", func(t *testing.T) {
		if NaturalCompare("abc", "ABD") >= 0 {
			t.Fatalf("expected abc before ABD")
		}
	})

	t.Run("leading zeros do not change value order", func(t *testing.T) {
		if NaturalCompare("007", "8") >= 0 {
			t.Fatalf("expected 007 before 8")
		}
	})
}

func TestSortNatural(t *testing.T) {
	values := []string{"125A", "15A", "10A", "50A", "8A"}
	SortNatural(values)
	expected := []string{"8A", "10A", "15A", "50A", "125A"}
	if !reflect.DeepEqual(values, expected) {
		t.Fatalf("expected %v got %v", expected, values)
	}
}

func TestFold(t *testing.T) {
	if Fold("ＳＴＳ３０４") != "sts304" {
		t.Fatalf("expected full-width input to fold to sts304, got %q", Fold("ＳＴＳ３０４"))
	}
	if Fold("  Elbow ") != "elbow" {
		t.Fatalf("expected trimmed lower-case fold")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("STS304-W", "sts304") {
		t.Fatalf("expected case-insensitive substring match")
	}
	if !ContainsFold("anything", "") {
		t.Fatalf("expected empty needle to match")
	}
	if ContainsFold("90E(L)", "tee") {
		t.Fatalf("expected no match")
	}
}
