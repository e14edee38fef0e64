package search

import (
	"reflect"
	"testing"
)

func TestFold_StripsDiacriticsAndCase(t *testing.T) {
	cases := map[string]string{
		"Élodie Durand":         "elodie durand",
		"  12  Rue   de  l'Été ": "12 rue de l'ete",
		"STRASSE":               "strasse",
		"":                      "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestDocument_SkipsEmptyParts(t *testing.T) {
	got := Document("Zoé Martin", "", "  ", "8 Avenue Foch")
	if got != "zoe martin 8 avenue foch" {
		t.Fatalf("Document = %q", got)
	}
}

func TestTerms_DedupAndOrder(t *testing.T) {
	got := Terms("Foch, foch  Zoé! -- zoe@example.com")
	want := []string{"foch", "zoe", "zoe@example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Terms = %v; want %v", got, want)
	}
	if Terms("  ,;!  ") != nil {
		t.Fatalf("punctuation-only query must yield nil")
	}
}

func TestTerms_Capped(t *testing.T) {
	got := Terms("a b c d e f g h i j k")
	if len(got) != MaxTerms {
		t.Fatalf("expected %d terms, got %d", MaxTerms, len(got))
	}
}

func TestLikePattern_Escapes(t *testing.T) {
	if got := LikePattern(`50%_off\`); got != `%50\%\_off\\%` {
		t.Fatalf("LikePattern = %q", got)
	}
	if got := LikePattern("foch"); got != "%foch%" {
		t.Fatalf("LikePattern = %q", got)
	}
}
