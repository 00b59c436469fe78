// Package core provides filtering and lookup over toast snapshots.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/toastq/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // title, description, variant, open, duration, age
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex      *regexp.Regexp
	variantVal model.Variant
	intVal     int
	ageVal     time.Duration
	boolVal    bool
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies simple criteria for filtering toasts.
type FilterOptions struct {
	Variant *model.Variant // nil = any
	Open    *bool          // nil = any
	Limit   int            // 0 = unlimited
}

// Filter returns the toasts matching opts, preserving order.
func Filter(toasts []model.Toast, opts FilterOptions) []model.Toast {
	result := make([]model.Toast, 0, len(toasts))
	for _, t := range toasts {
		if opts.Variant != nil && t.Variant != *opts.Variant {
			continue
		}
		if opts.Open != nil && t.Open != *opts.Open {
			continue
		}
		result = append(result, t)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
//
// Supported fields: title, description, variant, open, duration (ms), age
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "variant=destructive"
//   - "title~upload,open=true"
//   - "duration<=0" - persistent toasts
//   - "age>10s" - toasts raised more than ten seconds ago
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// parseCondition parses a single condition like "variant=info".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "title", "summary":
		c.Field = "title"
	case "description", "desc", "body":
		c.Field = "description"
	case "variant":
		v, err := model.ParseVariant(c.Value)
		if err != nil {
			return err
		}
		c.variantVal = v
	case "open":
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return fmt.Errorf("invalid open value: %s", c.Value)
		}
		c.boolVal = b
	case "duration":
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid duration value: %s (milliseconds)", c.Value)
		}
		c.intVal = n
	case "age":
		d, err := time.ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid age value: %w", err)
		}
		c.ageVal = d
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}
	return nil
}

// Match tests if a toast matches every condition.
func (f *FilterExpr) Match(t model.Toast, now time.Time) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(t, now) {
			return false
		}
	}
	return true
}

// Match tests if a toast matches this single condition. now is used for age.
func (c *FilterCondition) Match(t model.Toast, now time.Time) bool {
	switch c.Field {
	case "title":
		return c.matchString(t.Title)
	case "description":
		return c.matchString(t.Description)
	case "variant":
		switch c.Operator {
		case FilterOpEqual:
			return t.Variant == c.variantVal
		case FilterOpNotEqual:
			return t.Variant != c.variantVal
		}
		return false
	case "open":
		switch c.Operator {
		case FilterOpEqual:
			return t.Open == c.boolVal
		case FilterOpNotEqual:
			return t.Open != c.boolVal
		}
		return false
	case "duration":
		return compare(c.Operator, t.Duration, c.intVal)
	case "age":
		return compare(c.Operator, now.Sub(t.CreatedAt), c.ageVal)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func compare[T int | time.Duration](op FilterOp, field, value T) bool {
	switch op {
	case FilterOpEqual:
		return field == value
	case FilterOpNotEqual:
		return field != value
	case FilterOpGreater:
		return field > value
	case FilterOpLess:
		return field < value
	case FilterOpGreaterEq:
		return field >= value
	case FilterOpLessEq:
		return field <= value
	default:
		return false
	}
}

// FilterWithExpr returns the toasts matching expr.
func FilterWithExpr(toasts []model.Toast, expr *FilterExpr, now time.Time) []model.Toast {
	if expr == nil || len(expr.Conditions) == 0 {
		return toasts
	}

	result := make([]model.Toast, 0, len(toasts))
	for _, t := range toasts {
		if expr.Match(t, now) {
			result = append(result, t)
		}
	}
	return result
}
