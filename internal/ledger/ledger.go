// Package ledger 提供往来流水累计余额和含税费用的派生计算,不持有任何状态
package ledger

import "time"

// Entry 往来流水条目
type Entry struct {
	ID           string
	Date         time.Time
	RegistryDate time.Time
	Balance      float64
}

// CumulativeBalances 计算累计余额
// opening 为当前页第一条之前该账户全部流水的余额之和,保证分页不影响累计值
// entries 须已按 (date, registry_date, id) 升序排列
func CumulativeBalances(opening float64, entries []Entry) []float64 {
	result := make([]float64, len(entries))
	running := opening
	for i, e := range entries {
		running += e.Balance
		result[i] = running
	}
	return result
}

// Item 订单或报价明细中参与计费的字段
type Item struct {
	Amount  float64
	Price   float64
	TaxRate *float64 // 为空时按 0 计算
}

// Fee 单条明细的含税金额
func (i Item) Fee() float64 {
	rate := 0.0
	if i.TaxRate != nil {
		rate = *i.TaxRate
	}
	return i.Amount * i.Price * (1 + rate)
}

// TotalFee 计算明细含税总额,空集合返回 0
func TotalFee(items []Item) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Fee()
	}
	return total
}
