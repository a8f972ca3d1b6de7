// halcyon: a haplotype-based germline small-variant caller.
// Copyright (c) 2021 the halcyon authors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/halcyon-genomics/halcyon/blob/master/LICENSE.txt>.

package caller

import (
	"log"
	"sort"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/halcyon-genomics/halcyon/sam"
	"github.com/halcyon-genomics/halcyon/vcf"
)

const (
	startingKmerSize             = 25
	kmerSizeIterationIncrease    = 10
	maxKmerIterationsToAttempt   = 9
	maxUniqueKmersCountToDiscard = 2000
	minBaseQualityToUse          = 10 + asciiOffset
	pruneFactor                  = 2
	defaultNumPaths              = 128
)

type haplotype struct {
	bases    string
	score    float64
	rank     int
	location int32 // alignment begin wrt the window reference
	cigar    []sam.CigarOperation
	events   map[int32]*vcf.Variant
}

type (
	vertexInfo struct {
		kmer string
	}

	edgeInfo struct {
		from, to int32
		count    int32
		isRef    bool
		onPath   bool
		score    float64
	}

	// kmerGraph is an arena-backed de Bruijn graph: vertices and edges
	// live in flat tables, with per-vertex out/in edge index lists.
	kmerGraph struct {
		kmerSize     int32
		vertices     []vertexInfo
		edges        []edgeInfo
		outgoing     [][]int32
		incoming     [][]int32
		uniqueKmers  map[string]int32
		dupKmers     map[string]bool
		source, sink int32
	}
)

func newKmerGraph(kmerSize int32) *kmerGraph {
	return &kmerGraph{
		kmerSize:    kmerSize,
		uniqueKmers: make(map[string]int32),
		dupKmers:    make(map[string]bool),
	}
}

// dupKmersInSequence yields the k-mers that occur more than once in a
// single sequence.
func dupKmersInSequence(seq string, kmerSize int32) map[string]bool {
	allKmers := make(map[string]bool)
	var dupKmers map[string]bool
	for i, end := int32(0), int32(len(seq))-kmerSize; i <= end; i++ {
		kmer := seq[i : i+kmerSize]
		if allKmers[kmer] {
			if dupKmers == nil {
				dupKmers = make(map[string]bool)
			}
			dupKmers[kmer] = true
		} else {
			allKmers[kmer] = true
		}
	}
	return dupKmers
}

func (g *kmerGraph) addDupKmers(seq string) {
	for kmer := range dupKmersInSequence(seq, g.kmerSize) {
		g.dupKmers[kmer] = true
	}
}

func (g *kmerGraph) createVertex(kmer string) int32 {
	v := int32(len(g.vertices))
	g.vertices = append(g.vertices, vertexInfo{kmer: kmer})
	g.outgoing = append(g.outgoing, nil)
	g.incoming = append(g.incoming, nil)
	if !g.dupKmers[kmer] {
		if _, found := g.uniqueKmers[kmer]; !found {
			g.uniqueKmers[kmer] = v
		}
	}
	return v
}

// getVertex deduplicates via the unique k-mer index; duplicate k-mers
// always get a fresh vertex.
func (g *kmerGraph) getVertex(kmer string) int32 {
	if v, found := g.uniqueKmers[kmer]; found {
		return v
	}
	return g.createVertex(kmer)
}

func (g *kmerGraph) createEdge(u, v int32, isRef bool) {
	e := int32(len(g.edges))
	g.edges = append(g.edges, edgeInfo{from: u, to: v, count: 1, isRef: isRef})
	g.outgoing[u] = append(g.outgoing[u], e)
	g.incoming[v] = append(g.incoming[v], e)
}

func (g *kmerGraph) vertexSuffix(v int32) byte {
	kmer := g.vertices[v].kmer
	return kmer[len(kmer)-1]
}

// increaseCountsBackwards propagates support for the leading k-1 bases
// of a sequence along unambiguous predecessor chains.
func (g *kmerGraph) increaseCountsBackwards(v int32, kmerPrefix string) {
	if len(kmerPrefix) == 0 {
		return
	}
	if len(g.incoming[v]) == 1 {
		for _, ei := range g.incoming[v] {
			edge := &g.edges[ei]
			if g.vertexSuffix(edge.from) == kmerPrefix[len(kmerPrefix)-1] {
				edge.count++
				g.increaseCountsBackwards(edge.from, kmerPrefix[:len(kmerPrefix)-1])
			}
		}
	}
}

// extendChain steps from u along the out-edge whose target ends in the
// last base of kmer, creating the edge and target vertex if necessary.
func (g *kmerGraph) extendChain(u int32, kmer string, isRef bool) int32 {
	for _, ei := range g.outgoing[u] {
		edge := &g.edges[ei]
		if g.vertexSuffix(edge.to) == kmer[len(kmer)-1] {
			edge.count++
			return edge.to
		}
	}
	v := g.getVertex(kmer)
	g.createEdge(u, v, isRef)
	return v
}

func (g *kmerGraph) addSequence(seq string, isRef bool) {
	v := g.getVertex(seq[:g.kmerSize])
	g.increaseCountsBackwards(v, seq[:g.kmerSize-1])
	if isRef {
		g.source = v
	}
	for i, end := int32(1), int32(len(seq))-g.kmerSize; i <= end; i++ {
		v = g.extendChain(v, seq[i:i+g.kmerSize], isRef)
	}
	if isRef {
		g.sink = v
	}
}

// edgeAllowed is the pruning filter: reference edges, edges with
// enough support, and unique out-edges pass.
func (g *kmerGraph) edgeAllowed(edge *edgeInfo) bool {
	return edge.isRef || edge.count >= pruneFactor || len(g.outgoing[edge.from]) == 1
}

// hasCycle runs a depth-first search over the pruned graph and reports
// whether it contains a back edge.
func (g *kmerGraph) hasCycle() bool {
	visited := bitset.New(uint(len(g.vertices)))
	onStack := bitset.New(uint(len(g.vertices)))
	var visit func(v int32) bool
	visit = func(v int32) bool {
		visited.Set(uint(v))
		onStack.Set(uint(v))
		for _, ei := range g.outgoing[v] {
			edge := &g.edges[ei]
			if !g.edgeAllowed(edge) {
				continue
			}
			if onStack.Test(uint(edge.to)) {
				return true
			}
			if !visited.Test(uint(edge.to)) && visit(edge.to) {
				return true
			}
		}
		onStack.Clear(uint(v))
		return false
	}
	for v := range g.vertices {
		if !visited.Test(uint(v)) && visit(int32(v)) {
			return true
		}
	}
	return false
}

// findPaths enumerates all simple paths from source to sink through
// the pruning filter.
func (g *kmerGraph) findPaths() [][]int32 {
	var paths [][]int32
	var path []int32
	onPath := bitset.New(uint(len(g.vertices)))
	var walk func(v int32)
	walk = func(v int32) {
		path = append(path, v)
		onPath.Set(uint(v))
		if v == g.sink {
			paths = append(paths, append([]int32(nil), path...))
		} else {
			for _, ei := range g.outgoing[v] {
				edge := &g.edges[ei]
				if g.edgeAllowed(edge) && !onPath.Test(uint(edge.to)) {
					walk(edge.to)
				}
			}
		}
		onPath.Clear(uint(v))
		path = path[:len(path)-1]
	}
	walk(g.source)
	return paths
}

func (g *kmerGraph) findEdge(u, v int32) *edgeInfo {
	for _, ei := range g.outgoing[u] {
		if g.edges[ei].to == v {
			return &g.edges[ei]
		}
	}
	return nil
}

// computeEdgeScores marks path edges and assigns each the log10 of its
// share of the on-path support leaving its source vertex.
func (g *kmerGraph) computeEdgeScores(paths [][]int32) {
	verticesOnPaths := bitset.New(uint(len(g.vertices)))
	for _, path := range paths {
		for i := 1; i < len(path); i++ {
			g.findEdge(path[i-1], path[i]).onPath = true
		}
		for _, v := range path {
			verticesOnPaths.Set(uint(v))
		}
	}
	for v, ok := verticesOnPaths.NextSet(0); ok; v, ok = verticesOnPaths.NextSet(v + 1) {
		var sum float64
		for _, ei := range g.outgoing[v] {
			if g.edges[ei].onPath {
				sum += float64(g.edges[ei].count)
			}
		}
		for _, ei := range g.outgoing[v] {
			if edge := &g.edges[ei]; edge.onPath {
				edge.score = log10(float64(edge.count) / sum)
			}
		}
	}
}

// getHaplotypes reconstructs the sequence and score for every path,
// keeps the defaultNumPaths best, and aligns them to the reference.
func (g *kmerGraph) getHaplotypes(paths [][]int32, ref string) []*haplotype {
	haplotypes := make([]*haplotype, 0, len(paths))
	for _, path := range paths {
		var bases strings.Builder
		bases.WriteString(g.vertices[path[0]].kmer)
		var score float64
		for i := 1; i < len(path); i++ {
			bases.WriteByte(g.vertexSuffix(path[i]))
			score += g.findEdge(path[i-1], path[i]).score
		}
		haplotypes = append(haplotypes, &haplotype{bases: bases.String(), score: score})
	}
	sort.SliceStable(haplotypes, func(i, j int) bool {
		return haplotypes[i].score > haplotypes[j].score
	})
	if len(haplotypes) > defaultNumPaths {
		haplotypes = haplotypes[:defaultNumPaths]
	}
	for _, h := range haplotypes {
		offset, cigar, err := SmithWaterman(ref, h.bases, NewSWParameters)
		if err != nil {
			log.Panic(err)
		}
		h.location = offset
		h.cigar = cigar
	}
	return haplotypes
}

// addReadSegments yields the maximal substrings of a read where every
// base is a proper nucleotide with sufficient quality, discarding
// segments shorter than the k-mer size.
func addReadSegments(segments []string, aln *sam.Alignment, kmerSize int32) []string {
	start := int32(-1)
	end := int32(len(aln.SEQ))
	for stop := int32(0); stop < end; stop++ {
		if aln.SEQ[stop] == 'N' || aln.QUAL[stop] < minBaseQualityToUse {
			if start != -1 && stop-start >= kmerSize {
				segments = append(segments, aln.SEQ[start:stop])
			}
			start = -1
		} else if start == -1 {
			start = stop
		}
	}
	if start != -1 && end-start >= kmerSize {
		segments = append(segments, aln.SEQ[start:end])
	}
	return segments
}

func (hc *HaplotypeCaller) assembleWithKmerSize(alns []*sam.Alignment, ref string, kmerSize int32, allowDupKmersInRef bool) []*haplotype {
	if int32(len(ref)) < kmerSize {
		return nil
	}
	if !allowDupKmersInRef && len(dupKmersInSequence(ref, kmerSize)) > 0 {
		log.Printf("not using kmer size of %v in read threading assembler because reference contains non-unique kmers", kmerSize)
		return nil
	}

	var segments []string
	for _, aln := range alns {
		segments = addReadSegments(segments, aln, kmerSize)
	}

	graph := newKmerGraph(kmerSize)
	graph.addDupKmers(ref)
	for _, segment := range segments {
		graph.addDupKmers(segment)
	}
	graph.addSequence(ref, true)
	for _, segment := range segments {
		graph.addSequence(segment, false)
	}

	if len(graph.uniqueKmers) > maxUniqueKmersCountToDiscard {
		log.Printf("not using kmer size of %v in read threading assembler because it has too many unique kmers", kmerSize)
		return nil
	}
	if graph.hasCycle() {
		log.Printf("not using kmer size of %v in read threading assembler because it contains a cycle", kmerSize)
		return nil
	}
	log.Printf("using kmer size of %v in assembler", kmerSize)

	paths := graph.findPaths()
	graph.computeEdgeScores(paths)
	haplotypes := graph.getHaplotypes(paths, ref)
	if len(haplotypes) > 1 {
		log.Printf("found %v candidate haplotypes", len(haplotypes))
	} else {
		log.Printf("found only the reference haplotype in the assembly graph")
	}
	return haplotypes
}

// assembleReads builds candidate haplotypes for a window, retrying
// with increasing k-mer sizes while an attempt produces none.
func (hc *HaplotypeCaller) assembleReads(alns []*sam.Alignment, ref string) []*haplotype {
	kmerSize := hc.startingKmerSize
	for attempt := 0; ; attempt++ {
		lastAttempt := attempt == maxKmerIterationsToAttempt
		haplotypes := hc.assembleWithKmerSize(alns, ref, kmerSize, lastAttempt)
		if len(haplotypes) > 0 || lastAttempt {
			return haplotypes
		}
		kmerSize += kmerSizeIterationIncrease
	}
}
