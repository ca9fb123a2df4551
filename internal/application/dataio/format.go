// Package dataio exports structural elements and parts as JSON, YAML or
// CSV and imports them back, including text based mass creation.
package dataio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/partdb/backend/internal/domain/shared"
	csvimport "github.com/partdb/backend/internal/infrastructure/import"
)

// Format is a serialization format of import and export
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts a format name or file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", shared.NewDomainError("INVALID_FORMAT", fmt.Sprintf("Unsupported format %q, use json, yaml or csv", s))
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Extension returns the file extension without dot
func (f Format) Extension() string {
	return string(f)
}

// record is one exported element. Columns fixes the CSV column order.
type record interface {
	Columns() []string
	Fields() map[string]string
}

func encode[R record](w io.Writer, f Format, records []R) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		var zero R
		cw, err := csvimport.NewWriter(w, zero.Columns())
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := cw.Write(r.Fields()); err != nil {
				return err
			}
		}
		return cw.Flush()
	}
	return fmt.Errorf("unsupported format %q", f)
}

// decode reads the records of a document as rows. JSON and YAML documents
// must be a list of objects; their rows are numbered from 1.
func decode(r io.Reader, f Format) ([]*csvimport.Row, error) {
	if f == FormatCSV {
		rows, err := csvimport.ReadRows(r)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_FILE", err.Error())
		}
		return rows, nil
	}

	var items []map[string]any
	var err error
	if f == FormatJSON {
		err = json.NewDecoder(r).Decode(&items)
	} else {
		err = yaml.NewDecoder(r).Decode(&items)
	}
	if err == io.EOF {
		return nil, shared.NewDomainError("INVALID_FILE", csvimport.ErrEmptyFile.Error())
	}
	if err != nil {
		return nil, shared.NewDomainError("INVALID_FILE", fmt.Sprintf("The file is not a list of %s objects: %v", f, err))
	}

	rows := make([]*csvimport.Row, 0, len(items))
	for i, item := range items {
		row := &csvimport.Row{LineNumber: i + 1, Data: make(map[string]string, len(item))}
		for k, v := range item {
			row.Data[strings.ToLower(strings.TrimSpace(k))] = stringify(v)
		}
		if !row.IsEmpty() {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case []any:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = stringify(p)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}

// pathIndex maps case folded full paths of a kind to element IDs
type pathIndex map[string]uint

// pathKey folds the case of a full path so "STRASSE" finds "Straße"
func pathKey(path string) string {
	return cases.Fold().String(path)
}

func newPathIndex(elements []shared.Structural) (pathIndex, map[uint]string) {
	byID := make(map[uint]shared.Structural, len(elements))
	for _, el := range elements {
		byID[el.GetID()] = el
	}
	paths := make(map[uint]string, len(elements))
	var pathOf func(id uint, depth int) string
	pathOf = func(id uint, depth int) string {
		if p, ok := paths[id]; ok {
			return p
		}
		st := byID[id].Structure()
		p := st.Name
		if st.ParentID != nil && byID[*st.ParentID] != nil && depth < len(elements) {
			p = pathOf(*st.ParentID, depth+1) + shared.PathDelimiter + st.Name
		}
		paths[id] = p
		return p
	}
	index := make(pathIndex, len(elements))
	ids := make([]uint, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		index[pathKey(pathOf(id, 0))] = id
	}
	return index, paths
}

func (p pathIndex) lookup(names []string) (uint, bool) {
	id, ok := p[pathKey(shared.JoinPath(names))]
	return id, ok
}
