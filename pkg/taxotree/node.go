// Package taxotree holds the flat taxon dataset, its wire-format parsers and
// the hierarchy builder that turns flat parent/child records into trees.
package taxotree

import "strings"

// SyntheticRootID is the id given to the root inserted when the dataset
// contains more than one top-level record.
const SyntheticRootID = "root"

// FlatNode is one row of the flattened taxonomy resource. The slice of
// FlatNodes is the source of truth for the whole session; it is never
// mutated after loading.
type FlatNode struct {
	ID             string
	ParentID       string // empty for a root
	ScientificName string
	Rank           string // empty for unranked/structural nodes

	OrganismsCount   int
	AssembliesCount  int
	AnnotationsCount int

	CodingCount     float64
	NonCodingCount  float64
	PseudogeneCount float64
}

// GeneSum returns the sum of the gene-type counts selected by the mask.
func (n *FlatNode) GeneSum(enabled GeneMask) float64 {
	var s float64
	if enabled&GeneCoding != 0 {
		s += n.CodingCount
	}
	if enabled&GeneNonCoding != 0 {
		s += n.NonCodingCount
	}
	if enabled&GenePseudogene != 0 {
		s += n.PseudogeneCount
	}
	return s
}

// GeneMask selects which gene-type counts participate in bar lengths and
// sorting. Segments are always stacked in coding, non-coding, pseudogene
// order regardless of which are enabled.
type GeneMask uint8

const (
	GeneCoding GeneMask = 1 << iota
	GeneNonCoding
	GenePseudogene

	GeneAll = GeneCoding | GeneNonCoding | GenePseudogene
)

// Ranks is the fixed display ordering of taxonomic ranks, coarsest first.
// A node whose rank is absent from this list is treated as structural.
var Ranks = []string{"domain", "kingdom", "phylum", "class", "order", "family", "genus", "species"}

var rankIndex = func() map[string]int {
	m := make(map[string]int, len(Ranks))
	for i, r := range Ranks {
		m[r] = i
	}
	return m
}()

// RankDepth returns the position of rank in the fixed ordering, or -1 for
// unknown/empty ranks.
func RankDepth(rank string) int {
	if i, ok := rankIndex[strings.ToLower(rank)]; ok {
		return i
	}
	return -1
}
