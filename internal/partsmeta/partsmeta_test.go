package partsmeta

import (
	"reflect"
	"testing"

	"tome/internal/tabular"
)

func TestMineFindsLetterAndDigitPrefixedParts(t *testing.T) {
	text := "The LM2596 regulator pairs with a 1N4148 diode. Use the LM2596 adjustable variant."
	manifest := Mine(text, nil)

	if len(manifest.Parts) != 2 {
		t.Fatalf("expected two parts, got %+v", manifest.Parts)
	}
	if manifest.Parts[0].Number != "LM2596" || manifest.Parts[0].Mentions != 2 {
		t.Fatalf("unexpected top part %+v", manifest.Parts[0])
	}
	if manifest.Parts[1].Number != "1N4148" || manifest.Parts[1].Mentions != 1 {
		t.Fatalf("unexpected part %+v", manifest.Parts[1])
	}
}

func TestMineIgnoresStandardsReferences(t *testing.T) {
	text := "Certified to ISO9001 and IEC60950, flammability UL94. Driver ULN2003 included."
	manifest := Mine(text, nil)

	if len(manifest.Parts) != 1 || manifest.Parts[0].Number != "ULN2003" {
		t.Fatalf("expected only ULN2003, got %+v", manifest.Parts)
	}
}

func TestMineIgnoresUnits(t *testing.T) {
	manifest := Mine("Rated 45V at 100MA with 10K pull-up over 2.2uF.", nil)
	if len(manifest.Parts) != 0 {
		t.Fatalf("expected no parts in unit-only text, got %+v", manifest.Parts)
	}
}

func TestMineMarksTableProvenance(t *testing.T) {
	text := "Bill of materials: LM317 and BC547."
	tables := []tabular.Table{{
		Kind:    "ruled",
		Columns: 2,
		Rows:    [][]string{{"Part", "Qty"}, {"LM317", "2"}},
	}}
	manifest := Mine(text, tables)

	byNumber := map[string]Part{}
	for _, part := range manifest.Parts {
		byNumber[part.Number] = part
	}
	if !byNumber["LM317"].InTable {
		t.Fatalf("expected LM317 marked in table, got %+v", manifest.Parts)
	}
	if byNumber["BC547"].InTable {
		t.Fatalf("expected BC547 outside tables, got %+v", manifest.Parts)
	}
	if byNumber["LM317"].Mentions != 1 {
		t.Fatalf("table cells must not double-count mentions, got %+v", byNumber["LM317"])
	}
}

func TestMineMatchesManufacturers(t *testing.T) {
	text := "Second sources: Texas Instruments and ON Semiconductor. Also  ON\n Semiconductor regional stock."
	manifest := Mine(text, nil)

	want := []string{"ON Semiconductor", "Texas Instruments"}
	got := manifest.Manufacturers
	if len(got) != 2 {
		t.Fatalf("expected two manufacturers, got %v", got)
	}
	// The list preserves the built-in ordering, which is alphabetical.
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected manufacturers %v, want %v", got, want)
	}
}

func TestSummarizeCapsTopParts(t *testing.T) {
	manifest := Manifest{}
	for i := 0; i < maxSummaryParts+5; i++ {
		manifest.Parts = append(manifest.Parts, Part{Number: "PN", Mentions: 1})
	}
	summary := summarize(manifest)
	if summary.PartCount != maxSummaryParts+5 {
		t.Fatalf("unexpected part count %d", summary.PartCount)
	}
	if len(summary.TopParts) != maxSummaryParts {
		t.Fatalf("expected capped top parts, got %d", len(summary.TopParts))
	}
}
