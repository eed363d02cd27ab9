package taxotree

import (
	"strings"
	"testing"
)

const testTSV = "taxon_id\tparent_taxon_id\tscientific_name\tannotations_count\tassemblies_count\torganisms_count\trank\tcoding_count\tnon_coding_count\tpseudogene_count\n" +
	"1\t\tEukaryota\t120\t40\t30\t\t0\t0\t0\n" +
	"2\t1\tMetazoa\t100\t35\t25\tkingdom\t19500.5\t4200\t850.25\n" +
	"3\t2\tChordata\t80\t\t\tphylum\t21000\t\t900\n"

const testRecords = `{
  "fields": ["taxon_id","parent_taxon_id","scientific_name","annotations_count","assemblies_count","organisms_count","rank","coding_count","non_coding_count","pseudogene_count"],
  "rows": [
    ["1", null, "Eukaryota", 120, 40, 30, null, 0, 0, 0],
    ["2", "1", "Metazoa", 100, 35, 25, "kingdom", 19500.5, 4200, 850.25],
    ["3", "2", "Chordata", 80, null, null, "phylum", 21000, null, 900]
  ]
}`

func TestParseFormatsAgree(t *testing.T) {
	fromTSV, err := ParseTSV(strings.NewReader(testTSV))
	if err != nil {
		t.Fatalf("ParseTSV failed: %v", err)
	}
	fromRecords, err := ParseRecords([]byte(testRecords))
	if err != nil {
		t.Fatalf("ParseRecords failed: %v", err)
	}
	if len(fromTSV) != len(fromRecords) {
		t.Fatalf("length mismatch: tsv=%d records=%d", len(fromTSV), len(fromRecords))
	}
	for i := range fromTSV {
		if fromTSV[i] != fromRecords[i] {
			t.Errorf("row %d differs:\n tsv     %+v\n records %+v", i, fromTSV[i], fromRecords[i])
		}
	}
}

func TestParseEmptyFields(t *testing.T) {
	nodes, err := ParseTSV(strings.NewReader(testTSV))
	if err != nil {
		t.Fatalf("ParseTSV failed: %v", err)
	}
	chordata := nodes[2]
	if chordata.AssembliesCount != 0 || chordata.OrganismsCount != 0 {
		t.Errorf("empty numeric fields should parse as 0, got %+v", chordata)
	}
	if chordata.NonCodingCount != 0 {
		t.Errorf("empty non_coding_count should parse as 0, got %v", chordata.NonCodingCount)
	}
	if nodes[0].Rank != "" {
		t.Errorf("empty rank should stay unranked, got %q", nodes[0].Rank)
	}
}

func TestParsePayloadSniffing(t *testing.T) {
	if _, err := ParsePayload([]byte("  \n" + testRecords)); err != nil {
		t.Errorf("JSON sniffing failed: %v", err)
	}
	if _, err := ParsePayload([]byte(testTSV)); err != nil {
		t.Errorf("TSV sniffing failed: %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing column":  "taxon_id\tparent_taxon_id\n1\t\n",
		"no taxon id":     strings.Replace(testTSV, "1\t\tEukaryota", "\t\tEukaryota", 1),
		"negative count":  strings.Replace(testTSV, "\t120\t", "\t-5\t", 1),
		"bad gene number": strings.Replace(testTSV, "19500.5", "abc", 1),
	}
	for name, payload := range cases {
		if _, err := ParseTSV(strings.NewReader(payload)); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestParseNoneParent(t *testing.T) {
	payload := strings.Replace(testTSV, "1\t\tEukaryota", "1\tNone\tEukaryota", 1)
	nodes, err := ParseTSV(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseTSV failed: %v", err)
	}
	if nodes[0].ParentID != "" {
		t.Errorf(`"None" parent should parse as empty, got %q`, nodes[0].ParentID)
	}
}

func TestRankDepth(t *testing.T) {
	tests := []struct {
		rank string
		want int
	}{
		{"domain", 0},
		{"kingdom", 1},
		{"species", 7},
		{"Phylum", 2},
		{"", -1},
		{"strain", -1},
	}
	for _, tt := range tests {
		if got := RankDepth(tt.rank); got != tt.want {
			t.Errorf("RankDepth(%q) = %d, want %d", tt.rank, got, tt.want)
		}
	}
}
