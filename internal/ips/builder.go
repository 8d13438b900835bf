package ips

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one beneficiary row from the input workbook.
type Row struct {
	RUT     string `json:"rut"`
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	CodInsc string `json:"codinsc"`
	NumIns  string `json:"numins"`
	DvNIns  string `json:"dvnins"`
	FecIni  string `json:"fecini"` // dd/mm/yyyy
	CanCuo  string `json:"cancuo"`
}

// FixedParams are the per-file constants applied to every record.
type FixedParams struct {
	TipReg  int    `json:"tipreg"`
	Atrib   int    `json:"atrib"`
	CodDes  string `json:"coddes"`
	UmDesc  string `json:"umdesc"`
	Grupa   int    `json:"grupa"`
	NumBe   string `json:"numbe"`
	NumRet  int    `json:"numret"`
	TipMov  int    `json:"tipmov"`
	FecVen  string `json:"fecven"` // default 99999999 (open-ended)
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Agencia string `json:"agencia"`
}

// DefaultFecVen is the open-ended expiry marker.
const DefaultFecVen = "99999999"

// Result is the outcome of building an IPS file.
type Result struct {
	Content  string   `json:"content"`
	Filename string   `json:"filename"`
	Records  int      `json:"records"`
	Errors   []string `json:"errors,omitempty"`
}

// Build turns workbook rows plus fixed parameters into the final file
// content. Rows that fail validation are skipped and reported in
// Result.Errors; the remaining rows still produce a file.
func Build(rows []Row, params FixedParams) Result {
	res := Result{
		Filename: Filename(params.CodDes, params.Month, params.Year),
	}
	if params.FecVen == "" {
		params.FecVen = DefaultFecVen
	}

	var lines []string
	for i, row := range rows {
		lineNumber := i + 1

		valid, number, dv := ValidateRUT(row.RUT)
		if !valid {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: invalid RUT: %s", lineNumber, row.RUT))
			continue
		}

		fecini, err := parseFecIni(row.FecIni)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: invalid FECINI date: %s", lineNumber, row.FecIni))
			continue
		}

		record := Record{
			"DISA-RUTBEN":  number,
			"DISA-DVRBEN":  dv,
			"DISA-CODINSC": row.CodInsc,
			"DISA-TIPREG":  strconv.Itoa(params.TipReg),
			"DISA-ATRIB":   strconv.Itoa(params.Atrib),
			"DISA-CODDES":  params.CodDes,
			"DISA-UMDESC":  params.UmDesc,
			"DISA-NUMINS":  row.NumIns,
			"DISA-DVNINS":  row.DvNIns,
			"DISA-GRUPA":   strconv.Itoa(params.Grupa),
			"DISA-NUMBE":   params.NumBe,
			"DISA-NUMRET":  strconv.Itoa(params.NumRet),
			"DISA-TIPMOV":  strconv.Itoa(params.TipMov),
			"DISA-NOMBRE":  row.Name,
			"DISA-MONDE":   row.Amount,
			"DISA-FECINI":  fecini,
			"DISA-FECVEN":  params.FecVen,
			"DISA-CANCUO":  row.CanCuo,
			"DISA-FECMOV":  fmt.Sprintf("%02d%d", params.Month, params.Year),
			"DISA-AGENCIA": params.Agencia,
		}

		lines = append(lines, FormatRecord(record))
	}

	res.Content = strings.Join(lines, "\n")
	res.Records = len(lines)
	return res
}

// parseFecIni converts a dd/mm/yyyy date into the ddmmyyyy wire form.
func parseFecIni(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("expected dd/mm/yyyy, got %q", s)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return "", fmt.Errorf("bad day in %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("bad month in %q", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1900 {
		return "", fmt.Errorf("bad year in %q", s)
	}
	return fmt.Sprintf("%02d%02d%04d", day, month, year), nil
}

// Preview renders the first maxRecords formatted lines under a positional
// ruler, for eyeballing field alignment before submitting a file.
func Preview(rows []Row, params FixedParams, maxRecords int) string {
	if len(rows) == 0 {
		return "no records to preview"
	}

	var b strings.Builder

	// Units ruler, then tens ruler.
	for i := 1; i <= RecordLength; i++ {
		b.WriteByte(byte('0' + i%10))
	}
	b.WriteByte('\n')
	for i := 1; i <= RecordLength; i++ {
		if i%10 == 0 {
			b.WriteString(strconv.Itoa(i / 10 % 10))
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteString("\n\n")

	built := Build(rows, params)
	lines := strings.Split(built.Content, "\n")
	for i, line := range lines {
		if i >= maxRecords || line == "" {
			break
		}
		fmt.Fprintf(&b, "Reg %d: %s\n", i+1, line)
	}
	return b.String()
}
