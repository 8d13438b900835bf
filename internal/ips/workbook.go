package ips

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// requiredColumns are the workbook headers a beneficiary sheet must carry.
var requiredColumns = []string{"RUT", "NOMBRE", "MONTO", "CODINSC", "NUMINS", "DVNINS", "FECINI", "CANCUO"}

// ReadWorkbook reads beneficiary rows from the first sheet of an xlsx
// workbook. The first row must be a header containing all required columns;
// extra columns are ignored.
func ReadWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	col := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		col[header] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("workbook is missing required columns: %v", missing)
	}

	cell := func(row []string, name string) string {
		i := col[name]
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	var out []Row
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		out = append(out, Row{
			RUT:     cell(row, "RUT"),
			Name:    cell(row, "NOMBRE"),
			Amount:  cell(row, "MONTO"),
			CodInsc: cell(row, "CODINSC"),
			NumIns:  cell(row, "NUMINS"),
			DvNIns:  cell(row, "DVNINS"),
			FecIni:  cell(row, "FECINI"),
			CanCuo:  cell(row, "CANCUO"),
		})
	}
	return out, nil
}
