package arbitrage

import "sort"

// Rank 过滤掉利润率低于阈值的机会，并按利润率降序排列。
// 使用稳定排序，利润率相同的机会保持发现顺序。入参切片不被修改。
func Rank(opportunities []Opportunity, minProfitThreshold float64) []Opportunity {
	ranked := make([]Opportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if opp.ProfitPercentage >= minProfitThreshold {
			ranked = append(ranked, opp)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ProfitPercentage > ranked[j].ProfitPercentage
	})

	return ranked
}
