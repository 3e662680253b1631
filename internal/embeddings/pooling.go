package embeddings

import "fmt"

// MeanPool averages hidden states over the positions where mask is set.
// hidden is laid out [batch, seq, dims]; masks holds one row per batch entry.
func MeanPool(hidden []float32, masks [][]int32, seq, dims int) ([][]float32, error) {
	batch := len(masks)
	if len(hidden) != batch*seq*dims {
		return nil, fmt.Errorf("hidden state has %d values, want %d", len(hidden), batch*seq*dims)
	}

	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		if len(masks[b]) != seq {
			return nil, fmt.Errorf("mask %d has %d positions, want %d", b, len(masks[b]), seq)
		}

		pooled := make([]float32, dims)
		count := 0
		for s := 0; s < seq; s++ {
			if masks[b][s] == 0 {
				continue
			}
			count++
			offset := (b*seq + s) * dims
			for d := 0; d < dims; d++ {
				pooled[d] += hidden[offset+d]
			}
		}
		if count > 0 {
			inv := 1 / float32(count)
			for d := range pooled {
				pooled[d] *= inv
			}
		}
		out[b] = pooled
	}
	return out, nil
}
