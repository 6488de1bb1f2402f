package render

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
)

// rsvgConvert is the librsvg command line converter.
const rsvgConvert = "rsvg-convert"

// ToPDF converts an SVG flowchart to PDF with rsvg-convert. Cancelling ctx
// kills the converter. Without librsvg installed the error has code
// UNSUPPORTED; install it with `brew install librsvg` (macOS) or
// `apt install librsvg2-bin` (Linux).
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := exec.LookPath(rsvgConvert)
	if err != nil {
		return nil, codeerr.New(codeerr.ErrCodeUnsupported, "pdf export requires %s from librsvg", rsvgConvert)
	}

	cmd := exec.CommandContext(ctx, path, "-f", "pdf")
	cmd.Stdin = bytes.NewReader(svg)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, codeerr.Wrap(codeerr.ErrCodeInternal, err, "%s: %s", rsvgConvert, strings.TrimSpace(stderr.String()))
	}
	return out.Bytes(), nil
}
