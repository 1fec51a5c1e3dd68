// Package ioutil centralizes local/remote file opening for every reader in
// this module, the way pileup.LoadFa does in the teacher: go through
// grailbio/base/file so that local paths and s3:// URIs are handled
// uniformly, and transparently gunzip when the extension calls for it.
package ioutil

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// OpenedFile bundles an io.Reader over path with the underlying handle's
// Close, so callers get one defer instead of juggling two closers.
type OpenedFile struct {
	io.Reader
	f   file.File
	ctx context.Context
}

// Close releases the underlying file handle.
func (o *OpenedFile) Close() error {
	if o.f == nil {
		return nil
	}
	return o.f.Close(o.ctx)
}

// Open resolves path (local or s3://) and returns a reader over its
// contents, transparently gunzipping .gz/.bgz inputs.
func Open(ctx context.Context, path string) (*OpenedFile, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "ioutil.Open: %s", path)
	}
	var r io.Reader = f.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = f.Close(ctx)
			return nil, errors.Wrapf(err, "ioutil.Open: gzip %s", path)
		}
		r = gz
	}
	return &OpenedFile{Reader: r, f: f, ctx: ctx}, nil
}

// Scanner is a convenience wrapper producing a *bufio.Scanner over an
// opened path, sized generously enough for long VCF/pileup lines.
func Scanner(ctx context.Context, path string) (*bufio.Scanner, func() error, error) {
	of, err := Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	scanner := bufio.NewScanner(of)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	return scanner, of.Close, nil
}

// Create resolves path (local or s3://) for writing, mirroring
// pileup/snp/output.go's file.Create usage.
func Create(ctx context.Context, path string) (file.File, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "ioutil.Create: %s", path)
	}
	return f, nil
}
