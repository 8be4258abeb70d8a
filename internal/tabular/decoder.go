package tabular

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the on-disk encoding of a dataset
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatXLSX    Format = "xlsx"
)

// Decoder turns the raw bytes of a file into a Table
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Table, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(ctx context.Context, data []byte) (*Table, error)

// Decode calls f(ctx, data)
func (f DecoderFunc) Decode(ctx context.Context, data []byte) (*Table, error) {
	return f(ctx, data)
}

var decoders = map[Format]Decoder{
	FormatCSV:     DecoderFunc(DecodeCSV),
	FormatParquet: DecoderFunc(DecodeParquet),
	FormatJSON:    DecoderFunc(DecodeJSON),
	FormatXLSX:    DecoderFunc(DecodeXLSX),
}

// DecoderFor returns the decoder registered for format
func DecoderFor(format Format) (Decoder, error) {
	d, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("no decoder for format %q", format)
	}
	return d, nil
}

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
}
