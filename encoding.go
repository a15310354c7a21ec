package diffusion

import (
	"fmt"
	"math"

	"github.com/SiriEielsen/diffusion/tensor"
)

// TimeEncoding builds the fixed sinusoidal step-encoding table of shape
// [steps+1, embedSize]. Row t holds sin(t / 10000^(2i/embedSize)) in even
// columns and cos of the same angle in odd columns, i = 0..embedSize/2-1.
// Computed once; lookups afterwards are pure gathers.
func TimeEncoding(steps, embedSize int) (*tensor.Tensor, error) {
	if steps < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSteps, steps)
	}
	if embedSize <= 0 || embedSize%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrEmbedSize, embedSize)
	}

	table := tensor.New(steps+1, embedSize)
	half := embedSize / 2
	for t := 0; t <= steps; t++ {
		row := t * embedSize
		for i := 0; i < half; i++ {
			freq := math.Pow(10000, -2*float64(i)/float64(embedSize))
			angle := float64(t) * freq
			table.Data[row+2*i] = float32(math.Sin(angle))
			table.Data[row+2*i+1] = float32(math.Cos(angle))
		}
	}
	return table, nil
}

// LookupTimeEncoding gathers the table rows for a batch of step indices,
// returning a [len(ts), embedSize] tensor.
func LookupTimeEncoding(table *tensor.Tensor, ts []int) (*tensor.Tensor, error) {
	if len(table.Shape) != 2 {
		return nil, fmt.Errorf("%w: encoding table must be 2-d, got %v", ErrShape, table.Shape)
	}
	rows := table.Shape[0]
	width := table.Shape[1]

	out := tensor.New(len(ts), width)
	for i, t := range ts {
		if t < 0 || t >= rows {
			return nil, fmt.Errorf("%w: t=%d with table of %d rows", ErrStepIndex, t, rows)
		}
		copy(out.Data[i*width:(i+1)*width], table.Data[t*width:(t+1)*width])
	}
	return out, nil
}
