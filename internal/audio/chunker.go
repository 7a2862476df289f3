package audio

import (
	"fmt"
	"time"
)

// Window is one read range of a chunked job, in source frames
type Window struct {
	Index   int   `json:"index"`
	Start   int64 `json:"start"`
	Length  int64 `json:"length"`
	Overlap int64 `json:"overlap"` // frames shared with the previous window
}

// ChunkPlan splits a file into fixed windows with a left overlap
type ChunkPlan struct {
	TotalFrames   int64    `json:"total_frames"`
	ChunkFrames   int64    `json:"chunk_frames"`
	OverlapFrames int64    `json:"overlap_frames"`
	Windows       []Window `json:"windows"`
}

// PlanChunks computes max(1, ceil(total/chunk)) windows. Every window after
// the first starts overlap frames before its nominal boundary.
func PlanChunks(totalFrames int64, sampleRate int, chunk, overlap time.Duration) (ChunkPlan, error) {
	if sampleRate <= 0 {
		return ChunkPlan{}, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if totalFrames < 0 {
		return ChunkPlan{}, fmt.Errorf("total frames cannot be negative, got %d", totalFrames)
	}

	chunkFrames := int64(chunk.Seconds() * float64(sampleRate))
	overlapFrames := int64(overlap.Seconds() * float64(sampleRate))
	if chunkFrames <= 0 {
		return ChunkPlan{}, fmt.Errorf("chunk duration %v is shorter than one frame", chunk)
	}
	if overlapFrames < 0 || overlapFrames >= chunkFrames {
		return ChunkPlan{}, fmt.Errorf("overlap (%d frames) must be in [0, %d)", overlapFrames, chunkFrames)
	}

	count := (totalFrames + chunkFrames - 1) / chunkFrames
	if count < 1 {
		count = 1
	}

	plan := ChunkPlan{
		TotalFrames:   totalFrames,
		ChunkFrames:   chunkFrames,
		OverlapFrames: overlapFrames,
		Windows:       make([]Window, count),
	}
	for i := range plan.Windows {
		w := Window{
			Index:  i,
			Start:  int64(i) * chunkFrames,
			Length: chunkFrames,
		}
		if i > 0 {
			w.Start -= overlapFrames
			w.Length += overlapFrames
			w.Overlap = overlapFrames
		}
		plan.Windows[i] = w
	}

	return plan, nil
}

// Stitch concatenates chunks in order, crossfading each overlap region with
// complementary linear ramps. A single chunk is returned unchanged.
func Stitch(chunks [][]float64, overlap int) []float64 {
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return chunks[0]
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	result := make([]float64, 0, total)
	result = append(result, chunks[0]...)

	for _, chunk := range chunks[1:] {
		n := overlap
		if n > len(result) {
			n = len(result)
		}
		if n > len(chunk) {
			n = len(chunk)
		}
		if n <= 0 {
			result = append(result, chunk...)
			continue
		}

		tail := result[len(result)-n:]
		for k := 0; k < n; k++ {
			fadeIn := rampAt(k, n)
			tail[k] = tail[k]*(1-fadeIn) + chunk[k]*fadeIn
		}
		result = append(result, chunk[n:]...)
	}

	return result
}

// rampAt is the k-th point of an n-point linear ramp from 0 to 1 inclusive
func rampAt(k, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(k) / float64(n-1)
}
