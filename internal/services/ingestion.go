package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/looplens/backend/internal/models"
)

// RowError reports one validation failure with its 1-based source row
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

var requiredFields = []string{"session_id", "timestamp", "input", "output", "feedback_type", "feedback_value"}

// normalizeKey makes header lookup tolerant of case, whitespace and punctuation,
// so "Session ID", "session-id" and "session_id" all resolve to the same field.
func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	return k
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// parseTimestamp accepts ISO 8601 (Z treated as UTC) or a Unix epoch number.
func parseTimestamp(v any) (time.Time, bool) {
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	if epoch, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(epoch) && !math.IsInf(epoch, 0) {
		sec, frac := math.Modf(epoch)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
	}
	return time.Time{}, false
}

// parseTags accepts a native list, a JSON array literal, or a comma-separated
// string. Blank elements are dropped.
func parseTags(v any) []string {
	tags := []string{}
	appendTag := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			tags = append(tags, s)
		}
	}
	switch t := v.(type) {
	case nil:
		return tags
	case []any:
		for _, item := range t {
			appendTag(stringify(item))
		}
		return tags
	case []string:
		for _, item := range t {
			appendTag(item)
		}
		return tags
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return tags
	}
	if strings.HasPrefix(s, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			for _, item := range arr {
				appendTag(stringify(item))
			}
			return tags
		}
	}
	for _, part := range strings.Split(s, ",") {
		appendTag(part)
	}
	return tags
}

// parseMetadata accepts a native map or a JSON object literal. Anything
// unparsable degrades to an empty map rather than blocking the record.
func parseMetadata(v any) models.JSONB {
	switch t := v.(type) {
	case nil:
		return models.JSONB{}
	case map[string]any:
		return models.JSONB(t)
	case models.JSONB:
		return t
	}
	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return models.JSONB{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return models.JSONB(m)
	}
	return models.JSONB{}
}

// rowToLog converts one raw row into an AILog, or returns human-readable
// errors. A row with any error produces no partial record.
func rowToLog(accountID string, raw map[string]any) (models.AILog, []string) {
	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		normalized[normalizeKey(k)] = v
	}

	var errors []string
	for _, field := range requiredFields {
		v, ok := normalized[field]
		if !ok || v == nil || strings.TrimSpace(stringify(v)) == "" {
			errors = append(errors, fmt.Sprintf("Missing or empty required field: '%s'", field))
		}
	}
	if len(errors) > 0 {
		return models.AILog{}, errors
	}

	ts, ok := parseTimestamp(normalized["timestamp"])
	if !ok {
		return models.AILog{}, []string{"Invalid timestamp: use ISO 8601 like 2026-02-22T12:00:00Z"}
	}

	record := models.AILog{
		AccountID:    accountID,
		SessionID:    strings.TrimSpace(stringify(normalized["session_id"])),
		Timestamp:    ts,
		Input:        strings.TrimSpace(stringify(normalized["input"])),
		Output:       strings.TrimSpace(stringify(normalized["output"])),
		FeedbackType: strings.TrimSpace(stringify(normalized["feedback_type"])),
		Tags:         parseTags(normalized["tags"]),
		Metadata:     parseMetadata(normalized["metadata"]),
	}
	if fv := strings.TrimSpace(stringify(normalized["feedback_value"])); fv != "" {
		record.FeedbackValue = &fv
	}
	if uid := strings.TrimSpace(stringify(normalized["user_id"])); uid != "" {
		record.UserID = &uid
	}
	return record, nil
}

// ParseJSONRows parses a JSON body (array of objects or a single object,
// treated as a one-element batch). One malformed record never blocks others.
func ParseJSONRows(body []byte, accountID string) ([]models.AILog, []RowError) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, []RowError{{Row: 0, Error: "Invalid JSON."}}
	}

	var items []any
	switch t := data.(type) {
	case map[string]any:
		items = []any{t}
	case []any:
		items = t
	default:
		return nil, []RowError{{Row: 0, Error: "JSON must be an array of objects or a single object."}}
	}

	var valid []models.AILog
	var errs []RowError
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, RowError{Row: i + 1, Error: "Each item must be an object."})
			continue
		}
		record, rowErrors := rowToLog(accountID, obj)
		if len(rowErrors) > 0 {
			for _, e := range rowErrors {
				errs = append(errs, RowError{Row: i + 1, Error: e})
			}
			continue
		}
		valid = append(valid, record)
	}
	return valid, errs
}

// ParseCSVRows parses a CSV body. The first row is the header; data rows are
// reported with their 1-based file line number.
func ParseCSVRows(body []byte, accountID string) ([]models.AILog, []RowError) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = false

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, []RowError{{Row: 0, Error: "Invalid CSV."}}
	}
	if len(rows) < 2 {
		return nil, []RowError{{Row: 0, Error: "CSV has no data rows."}}
	}

	header := rows[0]
	var valid []models.AILog
	var errs []RowError
	for i, row := range rows[1:] {
		raw := make(map[string]any, len(header))
		for j, name := range header {
			if j < len(row) {
				raw[name] = row[j]
			}
		}
		record, rowErrors := rowToLog(accountID, raw)
		if len(rowErrors) > 0 {
			for _, e := range rowErrors {
				errs = append(errs, RowError{Row: i + 2, Error: e})
			}
			continue
		}
		valid = append(valid, record)
	}
	return valid, errs
}
