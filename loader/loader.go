package loader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	goavro "github.com/linkedin/goavro/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/razeghi71/tea/table"
)

var log logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used for load tracing.
func SetLogger(l logrus.FieldLogger) {
	log = l
}

// Load reads a file and returns a Table.
func Load(filename string) (*table.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var (
		t   *table.Table
		err error
	)
	switch ext {
	case ".csv":
		t, err = loadCSV(filename)
	case ".json":
		t, err = loadJSON(filename)
	case ".jsonl":
		t, err = loadJSONL(filename)
	case ".avro":
		t, err = loadAvro(filename)
	case ".parquet":
		t, err = loadParquet(filename)
	default:
		return nil, errors.Errorf("unsupported file format %q (supported: .csv, .json, .jsonl, .avro, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"file": filename, "columns": len(t.Columns)}).Debug("loaded")
	return t, nil
}

func loadCSV(filename string) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read CSV header from %s", filename)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	cells := make([][]any, len(columns))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading CSV row")
		}
		for i := range columns {
			var v any
			if i < len(record) {
				v = parseValue(strings.TrimSpace(record[i]))
			}
			cells[i] = append(cells[i], v)
		}
	}

	return buildTable(columns, cells)
}

// parseValue infers the type of a CSV cell value.
func parseValue(s string) any {
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func loadJSON(filename string) (*table.Table, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", filename)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "cannot parse JSON from %s (expected array of objects)", filename)
	}

	return buildTableFromRecords(records, jsonValue)
}

func loadJSONL(filename string) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var records []map[string]any
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, errors.Wrapf(err, "invalid JSON on line %d", lineNum)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading %s", filename)
	}

	return buildTableFromRecords(records, jsonValue)
}

// buildTableFromRecords lays out records as columns in order of first
// appearance of each key. Keys new to the same record are sorted.
func buildTableFromRecords(records []map[string]any, conv func(any) any) (*table.Table, error) {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for _, k := range slices.Sorted(maps.Keys(rec)) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	return buildRows(columns, records, conv)
}

func buildRows(columns []string, records []map[string]any, conv func(any) any) (*table.Table, error) {
	cells := make([][]any, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			cells[i] = append(cells[i], conv(rec[col]))
		}
	}
	return buildTable(columns, cells)
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case float64:
		// JSON numbers are float64; check if it's actually an integer
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	case string, bool, nil:
		return val
	default:
		// For nested objects/arrays, just stringify
		b, _ := json.Marshal(val)
		return string(b)
	}
}

func loadAvro(filename string) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s", filename)
	}
	defer f.Close()

	ocfr, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read Avro OCF from %s", filename)
	}

	var schemaDef struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(ocfr.Codec().Schema()), &schemaDef); err != nil {
		return nil, errors.Wrap(err, "cannot parse Avro schema")
	}

	columns := make([]string, len(schemaDef.Fields))
	for i, field := range schemaDef.Fields {
		columns[i] = field.Name
	}

	var records []map[string]any
	for ocfr.Scan() {
		datum, err := ocfr.Read()
		if err != nil {
			return nil, errors.Wrap(err, "error reading Avro record")
		}
		rec, ok := datum.(map[string]any)
		if !ok {
			return nil, errors.Errorf("unexpected Avro record type %T", datum)
		}
		records = append(records, rec)
	}
	if err := ocfr.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading Avro file")
	}

	return buildRows(columns, records, avroValue)
}

func avroValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(val)
	case int64:
		return val
	case float32:
		return float64(val)
	case float64, string, bool, time.Time:
		return val
	case []byte:
		return string(val)
	case map[string]any:
		// Avro unions decode as {"type": value} - extract the value
		for _, inner := range val {
			return avroValue(inner)
		}
		return nil
	default:
		return fmt.Sprintf("%v", val)
	}
}
