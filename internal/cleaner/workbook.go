package cleaner

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadCodes extracts order codes from the "Reserva" column of the first
// sheet of an xlsx workbook.
func ReadCodes(r io.Reader) ([]string, error) {
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

	codeCol := -1
	for i, header := range rows[0] {
		if strings.TrimSpace(header) == "Reserva" {
			codeCol = i
			break
		}
	}
	if codeCol == -1 {
		return nil, fmt.Errorf("workbook must contain a %q column", "Reserva")
	}

	var codes []string
	for _, row := range rows[1:] {
		if codeCol >= len(row) {
			continue
		}
		if code := strings.TrimSpace(row[codeCol]); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}
