package sampler

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// Excel samples the first worksheet of an .xlsx workbook. Row 1 is the header;
// columns with a blank header are skipped, as are entirely blank rows.
type Excel struct {
	Path string
}

func (s Excel) Sample(ctx context.Context) ([]fields.Sample, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheets found in Excel file: %w", fields.ErrEmptySource)
	}
	it, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	defer it.Close()

	var (
		columns []string
		index   []int
		rows    [][]string
	)
	for it.Next() && len(rows) < MaxRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := it.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if index == nil {
			for i, h := range cells {
				if h = strings.TrimSpace(h); h != "" {
					columns = append(columns, h)
					index = append(index, i)
				}
			}
			if index == nil {
				index = []int{}
			}
			continue
		}
		row := make([]string, len(index))
		blank := true
		for j, i := range index {
			if i < len(cells) {
				row[j] = cells[i]
				if cells[i] != "" {
					blank = false
				}
			}
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty: %w", fields.ErrEmptySource)
	}
	return Profile(columns, rows), nil
}
