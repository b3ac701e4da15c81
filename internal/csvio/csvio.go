// Package csvio imports and exports catalog and customer data as CSV, the
// format the butchery exchanges with its bookkeeping tooling. Files may come
// from Excel: exports carry a UTF-8 BOM and use semicolons, imports accept
// both semicolon and comma delimited files and strip the BOM, plus Excel's
// leading-quote text marker from numeric-looking fields.
package csvio

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ExportDelimiter is the delimiter used for all exports.
const ExportDelimiter = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkippedRow records why an import row was not applied. Line is 1-based and
// counts the header.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Report summarizes an import run.
type Report struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped []SkippedRow `json:"skipped,omitempty"`
}

func (r *Report) skip(line int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Line: line, Reason: reason})
}

// newReader wraps r in a CSV reader with the delimiter sniffed from the first
// line and any UTF-8 BOM removed.
func newReader(r io.Reader) (*csv.Reader, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(3)
	if err == nil && string(head) == string(utf8BOM) {
		if _, err := br.Discard(3); err != nil {
			return nil, errors.Wrap(err, "discard bom")
		}
	}

	line, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrap(err, "peek header")
	}
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(string(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr, nil
}

func sniffDelimiter(header string) rune {
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// header maps lowercased column names to their index.
type header map[string]int

func parseHeader(record []string) header {
	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

// cell returns the trimmed value of a named column. Text columns keep a
// leading apostrophe as-is; names like 't Stokbroodje are legitimate.
func (h header) cell(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// numCell is cell with Excel's leading single-quote text marker removed. Used
// for numeric-looking columns, where the marker only exists to keep Excel
// from eating leading zeros.
func (h header) numCell(record []string, name string) string {
	return strings.TrimPrefix(h.cell(record, name), "'")
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "ja", "y":
		return true, nil
	case "0", "false", "no", "nee", "n":
		return false, nil
	}
	return false, errors.Errorf("not a boolean: %q", s)
}

// parseList reads a cell as either a JSON string array or a comma separated
// list.
func parseList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		d := jx.DecodeStr(s)
		if err := d.Arr(func(d *jx.Decoder) error {
			v, err := d.Str()
			if err != nil {
				return err
			}
			out = append(out, v)
			return nil
		}); err != nil {
			return nil, errors.Wrap(err, "json list")
		}
		return out, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func encodeList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	var e jx.Encoder
	e.ArrStart()
	for _, v := range list {
		e.Str(v)
	}
	e.ArrEnd()
	return e.String()
}

// parseNutrition reads a JSON object of numeric nutrition values.
func parseNutrition(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]float64)
	d := jx.DecodeStr(s)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Float64()
		if err != nil {
			return err
		}
		out[key] = v
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "nutrition json")
	}
	return out, nil
}

func encodeNutrition(facts map[string]float64, keys []string) string {
	if len(facts) == 0 {
		return ""
	}
	var e jx.Encoder
	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		e.Float64(facts[k])
	}
	e.ObjEnd()
	return e.String()
}

// writeBOM prefixes an export so Excel detects UTF-8.
func writeBOM(w io.Writer) error {
	_, err := w.Write(utf8BOM)
	return err
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
