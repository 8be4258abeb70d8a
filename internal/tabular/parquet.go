package tabular

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// indexColumnPrefix marks unnamed index columns stored by dataframe
// writers; they are row labels, not data.
const indexColumnPrefix = "__index_level_"

// pandasMetadataKey is the file key-value entry holding the dataframe
// writer's schema description, including which stored columns are the index.
const pandasMetadataKey = "pandas"

// DecodeParquet reads a Parquet file through Arrow. A cell is missing when
// its validity bit is unset or, in floating-point columns, when it is NaN.
func DecodeParquet(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("open parquet as arrow: %w", err)
	}

	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read parquet table: %w", err)
	}
	defer tbl.Release()

	var index map[string]struct{}
	if meta := rdr.MetaData().KeyValueMetadata().FindValue(pandasMetadataKey); meta != nil {
		index = pandasIndexColumns(*meta)
	}
	return tableFromArrow(tbl, index), nil
}

// tableFromArrow builds the null mask of every data column, leaving out
// the named index columns and unnamed index levels.
func tableFromArrow(tbl arrow.Table, index map[string]struct{}) *Table {
	rows := int(tbl.NumRows())
	var columns []string
	var masks [][]bool

	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		if _, isIndex := index[col.Name()]; isIndex || strings.HasPrefix(col.Name(), indexColumnPrefix) {
			continue
		}

		mask := make([]bool, rows)
		offset := 0
		for _, chunk := range col.Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				mask[offset+j] = isMissingArrowValue(chunk, j)
			}
			offset += chunk.Len()
		}

		columns = append(columns, col.Name())
		masks = append(masks, mask)
	}

	t := NewTable(columns)
	t.rows = rows
	for c := range masks {
		t.nulls[c] = masks[c]
	}
	return t
}

// pandasIndexColumns returns the stored index column names listed in the
// pandas metadata document. Range indexes are described as objects and
// have no stored column, so only string entries count. Unreadable metadata
// lists nothing.
func pandasIndexColumns(doc string) map[string]struct{} {
	var meta struct {
		IndexColumns []json.RawMessage `json:"index_columns"`
	}
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		return nil
	}

	names := make(map[string]struct{}, len(meta.IndexColumns))
	for _, raw := range meta.IndexColumns {
		var name string
		if json.Unmarshal(raw, &name) == nil {
			names[name] = struct{}{}
		}
	}
	return names
}

func isMissingArrowValue(arr arrow.Array, i int) bool {
	if arr.IsNull(i) {
		return true
	}
	switch a := arr.(type) {
	case *array.Float64:
		return math.IsNaN(a.Value(i))
	case *array.Float32:
		return math.IsNaN(float64(a.Value(i)))
	}
	return false
}
