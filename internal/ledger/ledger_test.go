package ledger_test

import (
	"testing"
	"time"

	"github.com/mautops/backoffice-gin/internal/ledger"
	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

// TestCumulativeBalances 测试累计余额
func TestCumulativeBalances(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []ledger.Entry{
		{ID: "a", Date: base, RegistryDate: base, Balance: 100},
		{ID: "b", Date: base.AddDate(0, 0, 1), RegistryDate: base, Balance: -30},
		{ID: "c", Date: base.AddDate(0, 0, 2), RegistryDate: base, Balance: 50},
	}

	assert.Equal(t, []float64{100, 70, 120}, ledger.CumulativeBalances(0, entries))
}

// TestCumulativeBalances_Opening 测试分页时使用期初余额
func TestCumulativeBalances_Opening(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	all := []ledger.Entry{
		{ID: "a", Date: base, Balance: 100},
		{ID: "b", Date: base.AddDate(0, 0, 1), Balance: -30},
		{ID: "c", Date: base.AddDate(0, 0, 2), Balance: 50},
	}
	full := ledger.CumulativeBalances(0, all)

	// 第二页只包含最后一条,期初为前两条之和
	page := ledger.CumulativeBalances(70, all[2:])
	assert.Equal(t, full[2:], page)
}

// TestCumulativeBalances_Empty 测试空流水
func TestCumulativeBalances_Empty(t *testing.T) {
	assert.Empty(t, ledger.CumulativeBalances(42, nil))
}

// TestTotalFee 测试含税总额
func TestTotalFee(t *testing.T) {
	tests := []struct {
		name  string
		items []ledger.Item
		want  float64
	}{
		{
			name: "with tax",
			items: []ledger.Item{
				{Amount: 2, Price: 100, TaxRate: ptr(0.18)},
				{Amount: 3, Price: 25, TaxRate: ptr(0.18)},
			},
			want: 324.5,
		},
		{
			name:  "missing tax rate counts as zero",
			items: []ledger.Item{{Amount: 4, Price: 2.5}},
			want:  10,
		},
		{
			name:  "empty",
			items: nil,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ledger.TotalFee(tt.items), 1e-9)
		})
	}
}
