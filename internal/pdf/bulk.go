package pdf

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sebastiaan36/louman/internal/domain/document"
)

// renderConcurrency caps parallel fpdf renders in a bulk export.
const renderConcurrency = 4

// BulkPackingSlips renders one packing slip per order and bundles them into a
// ZIP archive. Slips render concurrently; the archive preserves input order.
func BulkPackingSlips(ctx context.Context, r document.Renderer, slips []document.PackingSlip) ([]byte, error) {
	rendered := make([][]byte, len(slips))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)
	for i, slip := range slips {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := r.PackingSlip(slip)
			if err != nil {
				return errors.Wrapf(err, "packing slip for order %d", slip.OrderID)
			}
			rendered[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, slip := range slips {
		f, err := zw.Create(fmt.Sprintf("packing-slip-%d.pdf", slip.OrderID))
		if err != nil {
			return nil, errors.Wrap(err, "create archive entry")
		}
		if _, err := f.Write(rendered[i]); err != nil {
			return nil, errors.Wrap(err, "write archive entry")
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "close archive")
	}
	return buf.Bytes(), nil
}
