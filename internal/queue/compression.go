package queue

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CompressedStore compresses values before handing them to the wrapped Store.
// Compressed bytes are base64 encoded so the wrapped store still sees text.
type CompressedStore struct {
	store       Store
	compression string
}

// NewCompressedStore wraps store with "gzip" or "zstd" compression. An empty
// or "none" compression returns store unchanged.
func NewCompressedStore(store Store, compression string) (Store, error) {
	switch compression {
	case "", "none":
		return store, nil
	case "gzip", "zstd":
		return &CompressedStore{store: store, compression: compression}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compression)
	}
}

func (c *CompressedStore) Get(ctx context.Context, key string) (string, bool, error) {
	encoded, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false, fmt.Errorf("decoding %q: %w", key, err)
	}

	var out bytes.Buffer
	switch c.compression {
	case "gzip":
		err = c.decompressGzip(&out, bytes.NewReader(raw))
	case "zstd":
		err = c.decompressZstd(&out, bytes.NewReader(raw))
	}
	if err != nil {
		return "", false, fmt.Errorf("decompressing %q: %w", key, err)
	}

	return out.String(), true, nil
}

func (c *CompressedStore) Set(ctx context.Context, key, value string) error {
	var out bytes.Buffer
	var err error
	switch c.compression {
	case "gzip":
		err = c.compressGzip(&out, bytes.NewReader([]byte(value)))
	case "zstd":
		err = c.compressZstd(&out, bytes.NewReader([]byte(value)))
	}
	if err != nil {
		return fmt.Errorf("compressing %q: %w", key, err)
	}

	return c.store.Set(ctx, key, base64.StdEncoding.EncodeToString(out.Bytes()))
}

func (c *CompressedStore) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

func (c *CompressedStore) compressGzip(w io.Writer, r io.Reader) error {
	gw := gzip.NewWriter(w)
	if _, err := io.Copy(gw, r); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func (c *CompressedStore) decompressGzip(w io.Writer, r io.Reader) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gr.Close()

	_, err = io.Copy(w, gr)
	return err
}

func (c *CompressedStore) compressZstd(w io.Writer, r io.Reader) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (c *CompressedStore) decompressZstd(w io.Writer, r io.Reader) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	_, err = io.Copy(w, zr)
	return err
}
