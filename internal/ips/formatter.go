// Package ips formats pension-discount files for the IPS exchange format:
// fixed-width 116-character records built from COBOL PIC field definitions,
// with Chilean RUT validation and positional previews.
package ips

import (
	"fmt"
	"regexp"
	"strings"
)

// RecordLength is the exact width of every IPS record.
const RecordLength = 116

// FieldKind distinguishes zero-padded numeric fields from space-padded text.
type FieldKind int

const (
	Numeric FieldKind = iota
	Text
)

// Field is one fixed-width field of the DISA record layout.
type Field struct {
	Name   string
	Pic    string
	Width  int
	Start  int // 1-based position
	End    int
	Kind   FieldKind
}

// Fields is the DISA record layout in wire order. Widths sum to RecordLength.
var Fields = []Field{
	{"DISA-RUTBEN", "PIC 9(08)", 8, 1, 8, Numeric},
	{"DISA-DVRBEN", "PIC X(01)", 1, 9, 9, Text},
	{"DISA-CODINSC", "PIC 9(02)", 2, 10, 11, Numeric},
	{"DISA-TIPREG", "PIC 9(01)", 1, 12, 12, Numeric},
	{"DISA-ATRIB", "PIC 9(01)", 1, 13, 13, Numeric},
	{"DISA-CODDES", "PIC 9(04)", 4, 14, 17, Numeric},
	{"DISA-UMDESC", "PIC 9(02)", 2, 18, 19, Numeric},
	{"DISA-NUMINS", "PIC 9(13)", 13, 20, 32, Numeric},
	{"DISA-DVNINS", "PIC X(01)", 1, 33, 33, Text},
	{"DISA-GRUPA", "PIC 9(01)", 1, 34, 34, Numeric},
	{"DISA-NUMBE", "PIC 9(02)", 2, 35, 36, Numeric},
	{"DISA-NUMRET", "PIC 9(01)", 1, 37, 37, Numeric},
	{"DISA-TIPMOV", "PIC 9(01)", 1, 38, 38, Numeric},
	{"DISA-NOMBRE", "PIC X(40)", 40, 39, 78, Text},
	{"DISA-MONDE", "PIC 9(10)", 10, 79, 88, Numeric},
	{"DISA-FECINI", "PIC 9(08)", 8, 89, 96, Numeric},
	{"DISA-FECVEN", "PIC 9(08)", 8, 97, 104, Numeric},
	{"DISA-CANCUO", "PIC 9(03)", 3, 105, 107, Numeric},
	{"DISA-FECMOV", "PIC 9(06)", 6, 108, 113, Numeric},
	{"DISA-AGENCIA", "PIC 9(03)", 3, 114, 116, Numeric},
}

var fieldIndex = func() map[string]Field {
	m := make(map[string]Field, len(Fields))
	for _, f := range Fields {
		m[f.Name] = f
	}
	return m
}()

// Record maps DISA field names to raw values before formatting.
type Record map[string]string

var (
	nonDigits = regexp.MustCompile(`[^0-9]`)
	nonRUT    = regexp.MustCompile(`[^0-9kK]`)
)

// FormatField pads a raw value to the field's fixed width: numeric fields
// keep digits only and are zero-padded left, text fields are truncated and
// space-padded right. Empty values fill with zeros or spaces accordingly.
func FormatField(value, fieldName string) string {
	f, ok := fieldIndex[fieldName]
	if !ok {
		return ""
	}

	value = strings.TrimSpace(value)
	if value == "" {
		if f.Kind == Numeric {
			return strings.Repeat("0", f.Width)
		}
		return strings.Repeat(" ", f.Width)
	}

	if f.Kind == Numeric {
		digits := nonDigits.ReplaceAllString(value, "")
		if digits == "" {
			digits = "0"
		}
		if len(digits) > f.Width {
			return digits[len(digits)-f.Width:]
		}
		return strings.Repeat("0", f.Width-len(digits)) + digits
	}

	runes := []rune(value)
	if len(runes) > f.Width {
		runes = runes[:f.Width]
	}
	return string(runes) + strings.Repeat(" ", f.Width-len(runes))
}

// FormatRecord assembles a full RecordLength-character line in field order.
func FormatRecord(r Record) string {
	var b strings.Builder
	b.Grow(RecordLength)
	for _, f := range Fields {
		b.WriteString(FormatField(r[f.Name], f.Name))
	}
	return b.String()
}

// ValidateRUT validates a Chilean RUT with the mod-11 algorithm and returns
// the zero-padded 8-digit number and the computed check digit.
func ValidateRUT(rut string) (valid bool, number, dv string) {
	clean := nonRUT.ReplaceAllString(rut, "")
	if len(clean) < 2 {
		return false, "", ""
	}

	body := clean[:len(clean)-1]
	given := strings.ToUpper(clean[len(clean)-1:])

	factor := 2
	sum := 0
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		if factor < 7 {
			factor++
		} else {
			factor = 2
		}
	}

	var computed string
	switch remainder := sum % 11; remainder {
	case 1:
		computed = "K"
	case 0:
		computed = "0"
	default:
		computed = fmt.Sprintf("%d", 11-remainder)
	}

	padded := body
	if len(padded) < 8 {
		padded = strings.Repeat("0", 8-len(padded)) + padded
	}
	return given == computed, padded, computed
}

// Filename builds the IPS deposit filename: fu<CODDES(4)>01<MM><YYYY>.txt.
func Filename(coddes string, month, year int) string {
	digits := nonDigits.ReplaceAllString(coddes, "")
	if len(digits) < 4 {
		digits = strings.Repeat("0", 4-len(digits)) + digits
	}
	return fmt.Sprintf("fu%s01%02d%d.txt", digits, month, year)
}

// ValidateRecord checks a formatted record for structural problems.
// lineNumber is 1-based and used in the returned messages.
func ValidateRecord(r Record, lineNumber int) []string {
	var errs []string

	if valid, _, _ := ValidateRUT(r["DISA-RUTBEN"] + r["DISA-DVRBEN"]); !valid {
		errs = append(errs, fmt.Sprintf("line %d: invalid RUT", lineNumber))
	}

	if got := len(FormatRecord(r)); got != RecordLength {
		errs = append(errs, fmt.Sprintf("line %d: record is %d characters, want %d", lineNumber, got, RecordLength))
	}

	for _, required := range []string{"DISA-RUTBEN", "DISA-CODDES", "DISA-MONDE", "DISA-FECINI"} {
		if strings.TrimSpace(r[required]) == "" {
			errs = append(errs, fmt.Sprintf("line %d: field %s is required", lineNumber, required))
		}
	}

	return errs
}
