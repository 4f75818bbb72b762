package types

import (
	"encoding/json"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/nrktql/fileql/date"
)

// InferType returns the precise DataType of a native Go value,
// testing bool before int/float64 so a boolean is never mistaken
// for an integer.
func InferType(v any) DataType {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer
	case float32, float64:
		return Float
	case *big.Rat:
		return Decimal
	case date.Time:
		return Datetime
	case string:
		return String
	default:
		return JSON
	}
}

var nullTokens = map[string]bool{
	"": true, "null": true, "none": true, "nan": true, "n/a": true, "-": true,
}

// isNullToken matches s against nullTokens case-insensitively, the
// null-detection rule HTML and Markdown cells need since their
// source text carries no type information of its own.
func isNullToken(s string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(s))]
}

var (
	dateISO    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateUS     = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	timeOnly   = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{1,2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
)

// InferTypeFromString classifies a raw field value, trying each
// candidate type in a fixed order: null token, boolean, integer,
// float/decimal, date, time, datetime, JSON, then string as the
// fallback every value matches.
func InferTypeFromString(s string) DataType {
	if isNullToken(s) {
		return Null
	}
	trimmed := strings.TrimSpace(s)
	low := strings.ToLower(trimmed)
	if low == "true" || low == "false" {
		return Boolean
	}
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return Integer
	}
	if looksNumeric(trimmed) {
		if isDecimalLiteral(trimmed) {
			return Decimal
		}
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Float
		}
	}
	if dateISO.MatchString(trimmed) || dateUS.MatchString(trimmed) {
		return Date
	}
	if timeOnly.MatchString(trimmed) {
		return Time
	}
	if datetimeRe.MatchString(trimmed) {
		return Datetime
	}
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var js any
		if json.Unmarshal([]byte(trimmed), &js) == nil {
			return JSON
		}
	}
	return String
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	seenDigit := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
			// allowed within a numeric literal
		default:
			return false
		}
	}
	return seenDigit
}

// isDecimalLiteral implements the engine's decimal-vs-float rule:
// a string with a decimal point and at least 5 significant digits
// is decimal; otherwise, if numeric, it's a float.
func isDecimalLiteral(s string) bool {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return false
	}
	if strings.ContainsAny(s, "eE") {
		return false
	}
	sig := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			sig++
		}
	}
	return sig >= 5
}

// InferCommonType folds a slice of per-sample inferred types
// through the promotion lattice, ignoring nulls. An all-null (or
// empty) sample set infers to Null.
func InferCommonType(samples []DataType) DataType {
	result := Null
	for _, t := range samples {
		if t == Null {
			continue
		}
		result = Promote(result, t)
	}
	return result
}
