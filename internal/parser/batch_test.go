package parser

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/statement-intake/internal/common"
)

func TestParseBatch(t *testing.T) {
	files := []File{
		{Name: "td.txt", Data: []byte(tdStatement)},
		{Name: "broken.bin", Data: []byte{0x00, 0x01}},
		{Name: "empty-result.txt", Data: []byte("nothing here\n")},
		{Name: "releve.txt", Data: []byte(desjardinsStatement)},
	}

	results, err := NewParser().ParseBatch(context.Background(), files, "")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Candidates, 4)

	assert.ErrorIs(t, results[1].Err, common.ErrUnsupportedEncoding)
	assert.Equal(t, "broken.bin", results[1].Source)
	assert.Empty(t, results[1].Candidates)

	assert.NoError(t, results[2].Err)
	assert.ErrorIs(t, results[2].Warning, common.ErrNoTransactionsRecognized)

	assert.NoError(t, results[3].Err)
	assert.Equal(t, KindDesjardins, results[3].Layout)
}

func TestParseBatch_TooManyFiles(t *testing.T) {
	files := make([]File, MaxBatchFiles+1)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("f%d.txt", i), Data: []byte(tdStatement)}
	}

	_, err := NewParser().ParseBatch(context.Background(), files, "")
	assert.ErrorIs(t, err, common.ErrTooManyFiles)

	results, err := NewParser(WithMaxBatchFiles(10)).ParseBatch(context.Background(), files, "")
	require.NoError(t, err)
	assert.Len(t, results, MaxBatchFiles+1)
}
