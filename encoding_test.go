package diffusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiriEielsen/diffusion/tensor"
)

func TestTimeEncodingTable(t *testing.T) {
	table, err := TimeEncoding(10, 8)
	require.NoError(t, err)
	require.Equal(t, []int{11, 8}, table.Shape)

	t.Run("row zero alternates", func(t *testing.T) {
		assert.Equal(t, []float32{0, 1, 0, 1, 0, 1, 0, 1}, table.Data[:8])
	})

	t.Run("row values", func(t *testing.T) {
		for _, step := range []int{1, 5, 10} {
			row := table.Data[step*8 : (step+1)*8]
			for i := 0; i < 4; i++ {
				angle := float64(step) * math.Pow(10000, -2*float64(i)/8)
				assert.InDelta(t, math.Sin(angle), float64(row[2*i]), 1e-6, "sin t=%d i=%d", step, i)
				assert.InDelta(t, math.Cos(angle), float64(row[2*i+1]), 1e-6, "cos t=%d i=%d", step, i)
			}
		}
	})
}

func TestTimeEncodingErrors(t *testing.T) {
	_, err := TimeEncoding(0, 8)
	require.ErrorIs(t, err, ErrSteps)

	_, err = TimeEncoding(10, 7)
	require.ErrorIs(t, err, ErrEmbedSize)

	_, err = TimeEncoding(10, 0)
	require.ErrorIs(t, err, ErrEmbedSize)

	_, err = TimeEncoding(10, -2)
	require.ErrorIs(t, err, ErrEmbedSize)
}

func TestLookupTimeEncoding(t *testing.T) {
	table, err := TimeEncoding(10, 4)
	require.NoError(t, err)

	rows, err := LookupTimeEncoding(table, []int{0, 10, 3, 3})
	require.NoError(t, err)
	require.Equal(t, []int{4, 4}, rows.Shape)

	assert.Equal(t, table.Data[0:4], rows.Data[0:4])
	assert.Equal(t, table.Data[40:44], rows.Data[4:8])
	assert.Equal(t, table.Data[12:16], rows.Data[8:12])
	assert.Equal(t, rows.Data[8:12], rows.Data[12:16])

	_, err = LookupTimeEncoding(table, []int{11})
	require.ErrorIs(t, err, ErrStepIndex)
	_, err = LookupTimeEncoding(table, []int{-1})
	require.ErrorIs(t, err, ErrStepIndex)

	_, err = LookupTimeEncoding(tensor.New(4), []int{0})
	require.ErrorIs(t, err, ErrShape)
}
