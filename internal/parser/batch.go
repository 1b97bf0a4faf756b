package parser

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/statement-intake/internal/common"
)

// MaxBatchFiles is the default number of statements accepted per upload.
const MaxBatchFiles = 6

// File is one uploaded statement.
type File struct {
	Name string
	Data []byte
}

// FileResult pairs a statement's result with its own failure.
// A failed file never aborts its siblings.
type FileResult struct {
	Err error
	Result
}

// ParseBatch parses files in parallel, keeping input order.
// The only batch-level errors are too many files and cancellation.
func (p *Parser) ParseBatch(ctx context.Context, files []File, hint LayoutKind) ([]FileResult, error) {
	if len(files) > p.maxBatchFiles {
		return nil, fmt.Errorf("%w: got %d, limit is %d", common.ErrTooManyFiles, len(files), p.maxBatchFiles)
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxBatchFiles)

	for i, f := range files {
		g.Go(func() error {
			res, err := p.Parse(gctx, f.Name, f.Data, hint)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i] = FileResult{Err: err, Result: Result{Source: f.Name}}
				return nil
			}
			results[i] = FileResult{Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
