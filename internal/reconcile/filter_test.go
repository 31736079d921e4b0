package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFilter_IsRealWarehouse(t *testing.T) {
	f := NewRecordFilter(DefaultKeywords(), nil)

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"whitespace", "   \t ", false},
		{"status label", "В пути до получателей", false},
		{"status label english", "In transit to recipient", false},
		{"total substring", "Итого всего по складам", false},
		{"total english substring", "Grand total", false},
		{"numeric", "12345", false},
		{"numeric with separators", "1 234,5", false},
		{"single letter", "X", false},
		{"physical warehouse", "Коледино", true},
		{"latin warehouse", "City X", true},
		{"marketplace", "Маркетплейс", true},
		{"seller warehouse", "Склад продавца", true},
		{"marketplace beats status substring", "FBS в пути", true},
		{"marketplace case insensitive", "MARKETPLACE total", true},
		{"letters with digits", "Склад 2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IsRealWarehouse(tt.in))
		})
	}
}

func TestRecordFilter_IsRealWarehousePtr(t *testing.T) {
	f := NewRecordFilter(DefaultKeywords(), nil)
	name := "Электросталь"

	assert.False(t, f.IsRealWarehousePtr(nil))
	assert.True(t, f.IsRealWarehousePtr(&name))
}

func TestRecordFilter_CustomPredicate(t *testing.T) {
	f := NewRecordFilter(DefaultKeywords(), func(name string) bool {
		return strings.HasPrefix(name, "DBS")
	})

	assert.True(t, f.IsMarketplace("DBS Moscow"))
	assert.False(t, f.IsMarketplace("Маркетплейс"))
	assert.True(t, f.IsRealWarehouse("DBS total"))
}

func TestNewKeywordPredicate(t *testing.T) {
	p := NewKeywordPredicate([]string{"  Seller  Warehouse ", ""})

	assert.True(t, p("Main seller   warehouse"))
	assert.False(t, p("Seller"))
	assert.False(t, p(""))
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  КОЛЕДИНО  ", "Коледино"},
		{"city   x", "City X"},
		{"склад\tпродавца", "Склад Продавца"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalName(tt.in), "input %q", tt.in)
	}
	assert.Equal(t, CanonicalName("Подольск"), CanonicalName("ПОДОЛЬСК "))
}
