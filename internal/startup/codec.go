package startup

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/klauspost/compress/gzip"
)

// DefaultSizeThreshold is the largest script shipped verbatim. Anything
// bigger is compressed and wrapped in the bootstrap stub so it survives
// delivery channels with payload size limits.
const DefaultSizeThreshold = 10 * 1024

// Codec decides whether a composed script travels as-is or wrapped in a
// compressed, base64-encoded bootstrap stub.
type Codec struct {
	catalog *Catalog
	log     logr.Logger
}

// NewCodec returns a Codec reading the bootstrap stub from catalog.
func NewCodec(catalog *Catalog, log logr.Logger) *Codec {
	return &Codec{catalog: catalog, log: log}
}

// Package returns script unchanged when it fits within threshold bytes.
// Otherwise it gzips the script, base64-encodes the compressed bytes and
// embeds them, with a sha256 checksum, in the bootstrap stub. The stub
// decodes, verifies and decompresses the payload on the target machine and
// executes the recovered script, propagating its exit status.
//
// The round trip is exact for arbitrary byte content: base64 keeps the
// payload inert inside the stub's quoting no matter what the script
// contains.
func (c *Codec) Package(script string, threshold int) (string, error) {
	if len(script) <= threshold {
		c.log.V(1).Info("script within threshold, shipping verbatim",
			"bytes", len(script), "threshold", threshold)
		return script, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(script)); err != nil {
		return "", fmt.Errorf("failed to compress startup script: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize compressed startup script: %w", err)
	}

	compressed := buf.Bytes()
	sum := sha256.Sum256(compressed)
	payload := base64.StdEncoding.EncodeToString(compressed)

	seg, err := c.catalog.Get(SegmentBootstrap)
	if err != nil {
		return "", err
	}
	stub, err := seg.Template.Render(Context{
		"payload":  String(payload),
		"checksum": String(hex.EncodeToString(sum[:])),
	})
	if err != nil {
		return "", err
	}

	c.log.V(1).Info("script exceeds threshold, wrapped in bootstrap stub",
		"bytes", len(script), "compressed", len(compressed), "stub", len(stub))
	return stub, nil
}
