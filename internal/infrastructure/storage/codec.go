package storage

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format names a snapshot serialization
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Compression names a snapshot compression scheme
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// Codec serializes and compresses snapshots
type Codec struct {
	Format      Format
	Compression Compression
}

// DefaultCodec is JSON with zstd
var DefaultCodec = Codec{Format: FormatJSON, Compression: CompressionZstd}

// ParseCodec validates configuration strings
func ParseCodec(format, compression string) (Codec, error) {
	c := Codec{Format: Format(format), Compression: Compression(compression)}
	switch c.Format {
	case FormatJSON, FormatYAML:
	default:
		return Codec{}, fmt.Errorf("unknown snapshot format %q", format)
	}
	switch c.Compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return Codec{}, fmt.Errorf("unknown snapshot compression %q", compression)
	}
	return c, nil
}

// ContentType returns the MIME type of the uncompressed form
func (c Codec) ContentType() string {
	if c.Format == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Marshal serializes v without compression.
// YAML is produced from the JSON form so both formats share field names.
func (c Codec) Marshal(v any) ([]byte, error) {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	if c.Format != FormatYAML {
		return data, nil
	}
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

// Unmarshal parses data in c's format into v
func (c Codec) Unmarshal(data []byte, v any) error {
	if c.Format == FormatYAML {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("decode yaml: %w", err)
		}
		data = converted
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// Encode marshals and compresses v
func (c Codec) Encode(v any) ([]byte, error) {
	data, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress(c.Compression, data)
}

// Decode decompresses and unmarshals data into v
func (c Codec) Decode(data []byte, v any) error {
	raw, err := decompress(c.Compression, data)
	if err != nil {
		return err
	}
	return c.Unmarshal(raw, v)
}

func compress(kind Compression, data []byte) ([]byte, error) {
	switch kind {
	case CompressionNone, "":
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot compression %q", kind)
	}
}

func decompress(kind Compression, data []byte) ([]byte, error) {
	switch kind {
	case CompressionNone, "":
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown snapshot compression %q", kind)
	}
}
