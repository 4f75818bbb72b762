// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package xsv

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"

	"github.com/nrktql/fileql/types"
)

const (
	TypeIgnore   = "ignore"
	TypeString   = "string" // default
	TypeNumber   = "number" // also floating point
	TypeInt      = "int"    // integer only
	TypeBool     = "bool"
	TypeDateTime = "datetime"
)

const (
	FormatDateTime             = "datetime" // default
	FormatDateTimeUnixSec      = "unix_seconds"
	FormatDateTimeUnixMilliSec = "unix_milli_seconds"
	FormatDateTimeUnixMicroSec = "unix_micro_seconds"
	FormatDateTimeUnixNanoSec  = "unix_nano_seconds"
)

var (
	ErrIngestEmptyOnlyValidForStrings = errors.New("only strings can be empty")
	ErrFormatOnlyValidForDateTime     = errors.New("format only valid for datetime type")
	ErrBoolValuesOnlyValidForBool     = errors.New("custom true/false values only valid for bool type")
	ErrRequireBothTrueAndFalseValues  = errors.New("require both true and false values")
	ErrTrueAndFalseValuesOverlap      = errors.New("true and false values overlap")
)

// Hint specifies the options and column type overrides for
// parsing a CSV/TSV file, overriding the reader's own sampled
// type inference on a per-column basis.
type Hint struct {
	// SkipRecords allows skipping the first
	// N records (useful when headers are used)
	SkipRecords int `json:"skipRecords"`
	// Separator allows specifying a custom
	// separator (only applicable for CSV)
	Separator rune `json:"separator"`
	// Fields specifies the hint for each field, in column order.
	Fields []FieldHint `json:"fields"`
}

// FieldHint defines if and how a field should be decoded.
type FieldHint struct {
	// Field name, used as the output column name.
	Name string `json:"name,omitempty"`
	// Type of field (or ignore)
	Type string `json:"type,omitempty"`
	// Default value if the column is an empty string
	Default string `json:"default,omitempty"`
	// Ingestion format (i.e. different data formats)
	Format string `json:"format,omitempty"`
	// Allow empty values (only valid for strings) to
	// be ingested. If flag is set to false, then the
	// field decodes as null instead.
	AllowEmpty bool `json:"allowEmpty,omitempty"`
	// Optional list of values that represent TRUE
	// (only valid for bool type)
	TrueValues []string `json:"trueValues,omitempty"`
	// Optional list of values that represent FALSE
	// (only valid for bool type)
	FalseValues []string `json:"falseValues,omitempty"`

	// decode resolves text to a types.Value per Type/Format.
	decode func(text string) (types.Value, error)
	// resolvedType is the column's declared schema type.
	resolvedType types.DataType
}

func (fh *FieldHint) UnmarshalJSON(data []byte) error {
	type _fieldHint FieldHint
	if err := json.Unmarshal(data, (*_fieldHint)(fh)); err != nil {
		return err
	}

	if fh.Name == "" || fh.Type == TypeIgnore {
		fh.Name = ""
		fh.Type = TypeIgnore
		return nil
	}

	t := fh.Type
	if t == "" {
		t = TypeString
	}

	if t != TypeDateTime && fh.Format != "" {
		return ErrFormatOnlyValidForDateTime
	}
	if t != TypeString && fh.AllowEmpty {
		return ErrIngestEmptyOnlyValidForStrings
	}
	if t != TypeBool && (fh.TrueValues != nil || fh.FalseValues != nil) {
		return ErrBoolValuesOnlyValidForBool
	}

	switch t {
	case TypeString:
		fh.resolvedType = types.String
		fh.decode = decodeString
	case TypeNumber:
		fh.resolvedType = types.Float
		fh.decode = decodeFloat
	case TypeInt:
		fh.resolvedType = types.Integer
		fh.decode = decodeInt
	case TypeBool:
		fh.resolvedType = types.Boolean
		if fh.TrueValues != nil || fh.FalseValues != nil {
			if len(fh.TrueValues) == 0 || len(fh.FalseValues) == 0 {
				return ErrRequireBothTrueAndFalseValues
			}
			for _, tv := range fh.TrueValues {
				if slices.Contains(fh.FalseValues, tv) {
					return ErrTrueAndFalseValuesOverlap
				}
			}
			trueValues, falseValues := fh.TrueValues, fh.FalseValues
			fh.decode = func(text string) (types.Value, error) {
				return decodeCustomBool(text, trueValues, falseValues)
			}
		} else {
			fh.decode = decodeBool
		}
	case TypeDateTime:
		fh.resolvedType = types.Datetime
		f := FormatDateTime
		if fh.Format != "" {
			f = fh.Format
		}
		switch f {
		case FormatDateTime:
			fh.decode = decodeDateText
		case FormatDateTimeUnixSec:
			fh.decode = decodeEpochSec
		case FormatDateTimeUnixMilliSec:
			fh.decode = decodeEpochMilli
		case FormatDateTimeUnixMicroSec:
			fh.decode = decodeEpochMicro
		case FormatDateTimeUnixNanoSec:
			fh.decode = decodeEpochNano
		default:
			return fmt.Errorf("invalid date format %q", f)
		}
	default:
		return fmt.Errorf("invalid field type %q", t)
	}

	return nil
}

// ParseHint parses a Hint from JSON or YAML bytes (YAML is a
// superset of JSON, so sigs.k8s.io/yaml's convert-then-unmarshal
// handles both).
//
// The input must contain an object like:
//
//	fields:
//	  - {name: id, type: int}
//	  - {name: when, type: datetime, format: unix_seconds}
//	  - {name: note, type: string, allowEmpty: true}
//
// A field with no name, or type "ignore", is dropped from the
// output row entirely. A missing "type" defaults to "string".
func ParseHint(hint []byte) (*Hint, error) {
	var h Hint
	if err := yaml.Unmarshal(hint, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
