package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"orgledger/internal/core"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// ExcelSerialDate converts a spreadsheet serial day number into a date.
// The fractional time-of-day part is dropped.
func ExcelSerialDate(serial float64) (core.Date, bool) {
	if serial < 1 || serial > maxExcelSerial || math.IsNaN(serial) {
		return core.Date{}, false
	}
	d := excelEpoch.AddDate(0, 0, int(math.Floor(serial)))
	return core.Date{Time: d}, true
}

// ParseDate accepts ISO dates, a handful of common layouts and spreadsheet
// serial numbers. It reports false when v is not recognizable.
func ParseDate(v any) (core.Date, bool) {
	switch x := v.(type) {
	case nil:
		return core.Date{}, false
	case core.Date:
		return x, !x.IsEmpty()
	case time.Time:
		if x.IsZero() {
			return core.Date{}, false
		}
		return core.NewDate(x.Year(), int(x.Month()), x.Day()), true
	case float64:
		return ExcelSerialDate(x)
	case int:
		return ExcelSerialDate(float64(x))
	case int64:
		return ExcelSerialDate(float64(x))
	case json.Number:
		return parseDateString(x.String())
	case string:
		return parseDateString(x)
	}
	return core.Date{}, false
}

func parseDateString(s string) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return ExcelSerialDate(n)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day()), true
		}
	}
	return core.Date{}, false
}
