package taxotree

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// fieldOrder is the fixed column layout of the flattened tree resource.
// Both transfer formats use it.
var fieldOrder = []string{
	"taxon_id", "parent_taxon_id", "scientific_name",
	"annotations_count", "assemblies_count", "organisms_count",
	"rank", "coding_count", "non_coding_count", "pseudogene_count",
}

// ParsePayload sniffs the transfer format and parses the payload into flat
// nodes. A payload whose first non-space byte is '{' is treated as the
// record-oriented JSON form, anything else as TSV.
func ParsePayload(payload []byte) ([]FlatNode, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseRecords(trimmed)
	}
	return ParseTSV(bytes.NewReader(payload))
}

// ParseRecords parses the JSON transfer form:
// {"fields": [...], "rows": [[...], ...]}. Field order must match fieldOrder.
func ParseRecords(payload []byte) ([]FlatNode, error) {
	var doc struct {
		Fields []string          `json:"fields"`
		Rows   []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding flattened tree: %w", err)
	}
	if len(doc.Fields) != len(fieldOrder) {
		return nil, fmt.Errorf("flattened tree has %d fields, want %d", len(doc.Fields), len(fieldOrder))
	}
	for i, f := range doc.Fields {
		if f != fieldOrder[i] {
			return nil, fmt.Errorf("unexpected field %q at position %d", f, i)
		}
	}
	nodes := make([]FlatNode, 0, len(doc.Rows))
	for i, raw := range doc.Rows {
		var row []any
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		cells := make([]string, len(row))
		for j, v := range row {
			switch t := v.(type) {
			case nil:
				cells[j] = ""
			case string:
				cells[j] = t
			case float64:
				cells[j] = strconv.FormatFloat(t, 'f', -1, 64)
			default:
				return nil, fmt.Errorf("row %d: unsupported cell type %T", i, v)
			}
		}
		n, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ParseTSV parses the tab-separated transfer form: a header row naming the
// columns in the fixed order, then one data row per record.
func ParseTSV(r io.Reader) ([]FlatNode, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty flattened tree payload")
	}
	header := strings.Split(strings.TrimRight(scanner.Text(), "\r"), "\t")
	if len(header) != len(fieldOrder) {
		return nil, fmt.Errorf("flattened tree header has %d columns, want %d", len(header), len(fieldOrder))
	}
	for i, f := range header {
		if f != fieldOrder[i] {
			return nil, fmt.Errorf("unexpected column %q at position %d", f, i)
		}
	}

	var nodes []FlatNode
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		cells := strings.Split(text, "\t")
		if len(cells) != len(fieldOrder) {
			return nil, fmt.Errorf("line %d: %d columns, want %d", line, len(cells), len(fieldOrder))
		}
		n, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		nodes = append(nodes, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// parseRow converts one row of string cells, in fieldOrder, into a FlatNode.
// Empty numeric cells parse as 0 and an empty rank stays empty (unranked).
func parseRow(cells []string) (FlatNode, error) {
	n := FlatNode{
		ID:             strings.TrimSpace(cells[0]),
		ParentID:       strings.TrimSpace(cells[1]),
		ScientificName: cells[2],
		Rank:           strings.ToLower(strings.TrimSpace(cells[6])),
	}
	if n.ID == "" {
		return FlatNode{}, fmt.Errorf("record has no taxon_id")
	}
	// The services emit "None"/"null" for missing parents in some exports.
	switch strings.ToLower(n.ParentID) {
	case "none", "null":
		n.ParentID = ""
	}

	var err error
	if n.AnnotationsCount, err = parseCount(cells[3]); err != nil {
		return FlatNode{}, fmt.Errorf("annotations_count: %w", err)
	}
	if n.AssembliesCount, err = parseCount(cells[4]); err != nil {
		return FlatNode{}, fmt.Errorf("assemblies_count: %w", err)
	}
	if n.OrganismsCount, err = parseCount(cells[5]); err != nil {
		return FlatNode{}, fmt.Errorf("organisms_count: %w", err)
	}
	if n.CodingCount, err = parseMean(cells[7]); err != nil {
		return FlatNode{}, fmt.Errorf("coding_count: %w", err)
	}
	if n.NonCodingCount, err = parseMean(cells[8]); err != nil {
		return FlatNode{}, fmt.Errorf("non_coding_count: %w", err)
	}
	if n.PseudogeneCount, err = parseMean(cells[9]); err != nil {
		return FlatNode{}, fmt.Errorf("pseudogene_count: %w", err)
	}
	return n, nil
}

func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some exports serialize integer counts as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, err
		}
		v = int(f)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %d", v)
	}
	return v, nil
}

func parseMean(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative count %v", v)
	}
	return v, nil
}
