package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errNoHeader = errors.New("sheet has no header row")

// parseRows converts a values matrix (as returned by the Sheets API) into
// rows keyed by the header in the first row. Blank headers become
// "Column N", short rows are padded and rows without any value are dropped.
func parseRows(values [][]interface{}) ([]map[string]string, error) {
	if len(values) == 0 {
		return nil, errNoHeader
	}
	headers := toStrings(values[0])
	if indexOfNonBlank(headers) == -1 {
		return nil, errNoHeader
	}
	for i, h := range headers {
		if h == "" {
			headers[i] = "Column " + strconv.Itoa(i+1)
		}
	}

	out := make([]map[string]string, 0, len(values)-1)
	for _, raw := range values[1:] {
		cols := toStrings(raw)
		if indexOfNonBlank(cols) == -1 {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			row[h] = safeGet(cols, i)
		}
		out = append(out, row)
	}
	return out, nil
}

// toStrings renders cells as text. Whole numbers print without a decimal
// part so serial dates and integer ids survive the round trip.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func indexOfNonBlank(arr []string) int {
	for i, v := range arr {
		if strings.TrimSpace(v) != "" {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
