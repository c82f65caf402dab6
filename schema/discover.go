package schema

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column classification
// ============================================================================
// Inspects raw data (CSV) and generates a Layout automatically.
//
// Classification pipeline per column:
//   1. Type detection (string, numeric, date, bool)
//   2. Role classification (dimension, measure, skip) from type + cardinality
//   3. Value column: the one named "value" (or opts.ValueColumn), else the
//      first measure
//   4. Hierarchy detection between dimensions
// ============================================================================

// ErrNoMeasure is returned when no column can hold the values.
var ErrNoMeasure = errors.New("no numeric column to use as value")

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // Max rows to inspect (0 = all). Default: 1000
	RecoverColumns []string // Force-include columns that were auto-skipped
	ValueColumn    string   // Preferred value column. Default: "value"
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{
		SampleSize:  1000,
		ValueColumn: "value",
	}
}

// DiscoverFromCSV generates a Layout by inspecting CSV data.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) (*Layout, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(bytes.NewReader(data))

	// 1. Read headers
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	// 2. Read sample rows
	var rows [][]string
	limit := opt.SampleSize
	if limit <= 0 {
		limit = 100000 // safety cap
	}

	for i := 0; i < limit; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}

	totalRows := len(rows)
	if totalRows == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	// 3. Analyze each column
	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, i, rows, totalRows)
	}

	// 4. Choose the value column
	preferred := Key(opt.ValueColumn)
	valueIdx := -1
	for i, col := range columns {
		if preferred != "" && col.key == preferred {
			valueIdx = i
			break
		}
	}
	if valueIdx < 0 {
		for i, col := range columns {
			if col.role == roleMeasure {
				valueIdx = i
				break
			}
		}
	}
	if valueIdx < 0 {
		return nil, ErrNoMeasure
	}

	// 5. Build layout
	recoverSet := make(map[string]bool)
	for _, col := range opt.RecoverColumns {
		recoverSet[strings.ToLower(col)] = true
	}

	layout := &Layout{Value: columns[valueIdx].key}
	for i := range columns {
		if i == valueIdx {
			continue
		}
		col := &columns[i]
		recovered := recoverSet[strings.ToLower(col.header)] || recoverSet[col.key]
		if col.role == roleSkipped && recovered {
			col.role = roleDimension
		}

		switch col.role {
		case roleDimension:
			layout.Dimensions = append(layout.Dimensions, col.toDimension())
		case roleMeasure:
			layout.Measures = append(layout.Measures, col.key)
		case roleSkipped:
			layout.SkippedColumns = append(layout.SkippedColumns, SkippedColumn{
				Column: col.header,
				Reason: col.skipReason,
			})
		}
	}

	// 6. Detect hierarchies
	layout.pairs = detectHierarchies(layout.Dimensions, rows, columns)

	return layout, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleSkipped
)

type columnType int

const (
	typeString columnType = iota
	typeNumeric
	typeDate
	typeBool
)

type columnAnalysis struct {
	header     string
	key        string
	index      int
	colType    columnType
	role       columnRole
	skipReason string

	// Stats
	uniqueCount int
	nullCount   int
	sampleVals  []string

	isTemporal      bool
	temporalFormat  string
	hasDecimals     bool
	cardinalityHint string
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]string, totalRows int) columnAnalysis {
	col := columnAnalysis{
		header: header,
		key:    Key(header),
		index:  index,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		if index >= len(row) {
			col.nullCount++
			continue
		}
		val := strings.TrimSpace(row[index])
		if val == "" || val == "null" || val == "NULL" || val == "N/A" || val == "n/a" {
			col.nullCount++
			continue
		}
		values = append(values, val)
		uniqueSet[val] = true
	}

	col.uniqueCount = len(uniqueSet)

	if len(values) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)

	// Step 1: Detect type
	col.colType = detectType(values)

	if col.colType == typeNumeric {
		for _, v := range values {
			if strings.Contains(v, ".") {
				col.hasDecimals = true
				break
			}
		}
	}

	// Step 2: Detect temporal patterns BEFORE role classification
	if col.colType == typeString {
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}
	if col.colType == typeDate {
		col.isTemporal = true
		_, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}

	// Step 3: Classify role based on type + cardinality
	col.classifyRole(totalRows)

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// classifyRole determines dimension vs measure vs skip.
func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.colType {

	case typeNumeric:
		// Continuous data → always a measure
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an ID column"
			return
		}
		// Few unique values at a low ratio → coded dimension (e.g. mode 1-3)
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.3 {
			col.role = roleDimension
			return
		}
		col.role = roleMeasure

	case typeDate, typeBool:
		col.role = roleDimension

	case typeString:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an identifier"
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("High cardinality (%d unique values) — not useful for grouping", col.uniqueCount)
			return
		}
		col.role = roleDimension
	}
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType inspects values to determine column type.
// Requires 80%+ of non-null values to match for numeric/date/bool.
func detectType(values []string) columnType {
	if len(values) == 0 {
		return typeString
	}

	numCount := 0
	dateCount := 0
	boolCount := 0

	for _, v := range values {
		if isNumeric(v) {
			numCount++
		}
		if isDate(v) {
			dateCount++
		}
		if isBool(v) {
			boolCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)

	if boolCount >= threshold {
		return typeBool
	}
	if dateCount >= threshold {
		return typeDate
	}
	if numCount >= threshold {
		return typeNumeric
	}
	return typeString
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan-2006",
	"January 2006",
	"2006",
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no"
}

var temporalPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^\d{4}$`), "yyyy"},                   // 2030
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2030-01
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "yyyy-MM-dd"}, // 2030-01-31
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2030
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},         // Q1-2030
}

// detectTemporalPattern checks if values match known date/month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}

	for _, pattern := range temporalPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}

	return false, ""
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every label of dimension B maps to exactly one label of dimension A,
// and A has fewer unique labels, then A is parent of B.
// When multiple valid parents exist, picks the closest (highest cardinality).
// Returns the observed child → parent pairs for each child given a parent.
func detectHierarchies(dimensions []DimensionMeta, rows [][]string, columns []columnAnalysis) map[string][][]string {
	dimIndices := make(map[string]int) // key → column index
	for _, col := range columns {
		dimIndices[col.key] = col.index
	}

	pairs := make(map[string][][]string)
	for i := range dimensions {
		child := dimensions[i]
		childIdx := dimIndices[child.Key]

		bestParent := ""
		bestParentUniques := 0
		var bestMap map[string]string

		for j := range dimensions {
			parent := dimensions[j]
			if i == j || parent.Cardinality >= child.Cardinality {
				continue
			}
			parentIdx := dimIndices[parent.Key]

			childToParent := make(map[string]string)
			isHierarchy := true
			for _, row := range rows {
				if childIdx >= len(row) || parentIdx >= len(row) {
					continue
				}
				c := strings.TrimSpace(row[childIdx])
				p := strings.TrimSpace(row[parentIdx])
				if c == "" || p == "" {
					continue
				}
				if existing, ok := childToParent[c]; ok {
					if existing != p {
						isHierarchy = false
						break
					}
				} else {
					childToParent[c] = p
				}
			}

			if isHierarchy && len(childToParent) > 1 && parent.Cardinality > bestParentUniques {
				bestParent = parent.Key
				bestParentUniques = parent.Cardinality
				bestMap = childToParent
			}
		}

		if bestParent != "" {
			dimensions[i].Parent = bestParent
			for c, p := range bestMap {
				pairs[child.Key] = append(pairs[child.Key], []string{c, p})
			}
		}
	}
	return pairs
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

// toDimension converts a column analysis into DimensionMeta.
func (col *columnAnalysis) toDimension() DimensionMeta {
	return DimensionMeta{
		Key:             col.key,
		DisplayName:     toDisplayName(col.header),
		SampleValues:    col.sampleVals,
		Cardinality:     col.uniqueCount,
		CardinalityHint: col.cardinalityHint,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
	}
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// Key converts a column header into a dimension key:
// "Column Name" or "columnName" → "column_name".
func Key(s string) string {
	s = strings.TrimSpace(s)
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}

// toDisplayName cleans a header for human display.
// "year_act" → "Year Act", "node" → "Node"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples representative values, sorted.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)

	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
