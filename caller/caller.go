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
	"math/rand"
	"runtime"

	"github.com/exascience/pargo/pipeline"

	"github.com/halcyon-genomics/halcyon/fasta"
	"github.com/halcyon-genomics/halcyon/internal"
	"github.com/halcyon-genomics/halcyon/intervals"
	"github.com/halcyon-genomics/halcyon/sam"
	"github.com/halcyon-genomics/halcyon/vcf"
)

// Default window tiling parameters.
const (
	DefaultWindowSize        = 245
	DefaultPadding           = 85
	DefaultMaxReadsPerWindow = 1024
	DefaultRandomSeed        = 47382911
)

// SampleName is the sample column written to the VCF output.
const SampleName = "NA12878"

// HaplotypeCaller holds the parameters of the per-window
// haplotype-calling pipeline.
type HaplotypeCaller struct {
	windowSize        int32
	padding           int32
	maxReadsPerWindow int
	startingKmerSize  int32
	random            *rand.Rand
}

// NewHaplotypeCaller creates a caller with the given window tiling
// parameters. The random seed determines the per-window read
// subsampling.
func NewHaplotypeCaller(windowSize, padding int32, maxReadsPerWindow int, randomSeed int64) *HaplotypeCaller {
	return &HaplotypeCaller{
		windowSize:        windowSize,
		padding:           padding,
		maxReadsPerWindow: maxReadsPerWindow,
		startingKmerSize:  startingKmerSize,
		random:            rand.New(rand.NewSource(randomSeed)),
	}
}

// a callWindowJob is one window worth of work, with reads already
// selected and cloned, so the windows can be processed in parallel
type callWindowJob struct {
	alns                       []*sam.Alignment
	windowRef                  string
	paddedRegion, originRegion intervals.Interval
}

// selectWindowReads picks one representative read per start position
// inside the padded window, uniformly at random, up to the hard cap.
func (hc *HaplotypeCaller) selectWindowReads(readsByStart [][]*sam.Alignment, paddedRegion intervals.Interval) []*sam.Alignment {
	var alns []*sam.Alignment
	for begin := paddedRegion.Start; begin < paddedRegion.End; begin++ {
		bucket := readsByStart[begin]
		if len(bucket) == 0 {
			continue
		}
		if len(alns) == hc.maxReadsPerWindow {
			break
		}
		alns = append(alns, bucket[hc.random.Intn(len(bucket))].Clone())
	}
	return alns
}

// CallVariants tiles the reference contig into windows and runs the
// haplotype-calling pipeline on each, writing the called variants to
// vcfOutput in scan order.
func (hc *HaplotypeCaller) CallVariants(input *sam.Sam, reference *fasta.Fasta, vcfOutput string) {
	contigLength := int32(len(reference.Seq))

	sam.By(sam.CoordinateLess).ParallelStableSort(input.Alignments)
	readsByStart := make([][]*sam.Alignment, contigLength)
	for _, aln := range input.Alignments {
		if begin := aln.Begin(); begin >= 0 && begin < contigLength {
			readsByStart[begin] = append(readsByStart[begin], aln)
		}
	}

	vcfFile := vcf.Create(vcfOutput, SampleName)
	defer vcfFile.Close()

	jobs := make(chan callWindowJob, runtime.GOMAXPROCS(0))
	go func() {
		defer close(jobs)
		for windowStart := int32(0); windowStart < contigLength; windowStart += hc.windowSize {
			originRegion := intervals.Interval{
				Contig: reference.Name,
				Start:  windowStart,
				End:    minInt32(windowStart+hc.windowSize, contigLength),
			}
			paddedRegion := originRegion.Expand(hc.padding)
			paddedRegion.End = minInt32(paddedRegion.End, contigLength)
			jobs <- callWindowJob{
				alns:         hc.selectWindowReads(readsByStart, paddedRegion),
				windowRef:    string(reference.Seq[paddedRegion.Start:paddedRegion.End]),
				paddedRegion: paddedRegion,
				originRegion: originRegion,
			}
		}
	}()

	var p pipeline.Pipeline
	p.Source(pipeline.NewSingletonChan(jobs))
	p.SetVariableBatchSize(1, 1)
	p.Add(
		pipeline.LimitedPar(runtime.GOMAXPROCS(0), pipeline.Receive(func(_ int, data interface{}) interface{} {
			job := data.(callWindowJob)
			variants, err := hc.callWindow(job.alns, job.windowRef, job.paddedRegion, job.originRegion)
			if err != nil {
				log.Printf("skipping %v: %v", job.originRegion, err)
				return [][]byte(nil)
			}
			records := make([][]byte, 0, len(variants))
			for _, variant := range variants {
				records = append(records, append(variant.Format(nil), '\n'))
			}
			return records
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			for _, record := range data.([][]byte) {
				if _, err := vcfFile.Writer.Write(record); err != nil {
					log.Panic(err)
				}
			}
			return nil
		})),
	)
	internal.RunPipeline(&p)
	log.Println("HaplotypeCaller done.")
}
