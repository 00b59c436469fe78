package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastq/internal/model"
)

func TestFilter_Empty(t *testing.T) {
	assert.Len(t, Filter(nil, FilterOptions{}), 0)
}

func TestFilter_NoFilters(t *testing.T) {
	assert.Len(t, Filter(sample(), FilterOptions{}), 3)
}

func TestFilter_ByVariant(t *testing.T) {
	result := Filter(sample(), FilterOptions{Variant: model.Ptr(model.VariantSuccess)})
	require.Len(t, result, 1)
	assert.Equal(t, "2", result[0].ID)
}

func TestFilter_ByOpen(t *testing.T) {
	result := Filter(sample(), FilterOptions{Open: model.Ptr(true)})
	assert.Len(t, result, 2)
	for _, tt := range result {
		assert.True(t, tt.Open)
	}

	result = Filter(sample(), FilterOptions{Open: model.Ptr(false)})
	require.Len(t, result, 1)
	assert.Equal(t, "1", result[0].ID)
}

func TestFilter_Limit(t *testing.T) {
	result := Filter(sample(), FilterOptions{Limit: 2})
	require.Len(t, result, 2)
	assert.Equal(t, "3", result[0].ID, "order is preserved")
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		conds   int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"single", "variant=info", 1, false},
		{"multiple", "title~save, open=true", 2, false},
		{"not equal", "variant!=default", 1, false},
		{"regex", "title~=^Up", 1, false},
		{"age", "age>=5s", 1, false},
		{"missing operator", "variant", 0, true},
		{"unknown field", "app=slack", 0, true},
		{"bad variant", "variant=loud", 0, true},
		{"bad bool", "open=maybe", 0, true},
		{"bad duration", "duration>soon", 0, true},
		{"bad age", "age>1x", 0, true},
		{"bad regex", "title~=(", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, expr.Conditions, tt.conds)
		})
	}
}

func TestParseFilter_OperatorPrecedence(t *testing.T) {
	expr, err := ParseFilter("duration>=100,variant!=info,title~=x")
	require.NoError(t, err)
	require.Len(t, expr.Conditions, 3)
	assert.Equal(t, FilterOpGreaterEq, expr.Conditions[0].Operator)
	assert.Equal(t, FilterOpNotEqual, expr.Conditions[1].Operator)
	assert.Equal(t, FilterOpRegex, expr.Conditions[2].Operator)
}

func TestFilterWithExpr(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	toasts := []model.Toast{
		{ID: "3", Title: "Upload failed", Variant: model.VariantDestructive, Open: true, Duration: 0, CreatedAt: now.Add(-time.Second)},
		{ID: "2", Title: "Saved", Variant: model.VariantSuccess, Open: true, Duration: 5000, CreatedAt: now.Add(-20 * time.Second)},
		{ID: "1", Title: "Heads up", Variant: model.VariantWarning, Open: false, Duration: 5000, CreatedAt: now.Add(-time.Minute)},
	}

	tests := []struct {
		expr string
		ids  []string
	}{
		{"", []string{"3", "2", "1"}},
		{"variant=error", []string{"3"}},
		{"variant!=destructive", []string{"2", "1"}},
		{"open=false", []string{"1"}},
		{"open!=false", []string{"3", "2"}},
		{"title~UP", []string{"3", "1"}},
		{"title=Saved", []string{"2"}},
		{"title!=Saved", []string{"3", "1"}},
		{"title~=^H", []string{"1"}},
		{"duration<=0", []string{"3"}},
		{"duration>0", []string{"2", "1"}},
		{"duration=5000,open=true", []string{"2"}},
		{"age>10s", []string{"2", "1"}},
		{"age<10s", []string{"3"}},
		{"description~x", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)

			ids := []string{}
			for _, toast := range FilterWithExpr(toasts, expr, now) {
				ids = append(ids, toast.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestFilterWithExpr_Nil(t *testing.T) {
	toasts := sample()
	assert.Equal(t, toasts, FilterWithExpr(toasts, nil, time.Now()))
}

func TestFilterCondition_UnsupportedOperator(t *testing.T) {
	expr, err := ParseFilter("variant>info")
	require.NoError(t, err)
	assert.False(t, expr.Match(model.Toast{Variant: model.VariantInfo}, time.Now()))
}
