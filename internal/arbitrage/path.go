package arbitrage

import (
	"sort"

	"triarb/internal/exchange"
)

// Path 为闭合的三角遍历序列 [base, A, B, base]，首尾货币相同。
type Path []string

// GeneratePaths 枚举以 base 为起点的全部三角路径。
// 对邻居集合中每个有序货币对 (A, B)，当 A/B 或 B/A 在快照中直接可交易时
// 产出路径 [base, A, B, base]。(A, B) 与 (B, A) 定价不同，均会产出，不做去重。
// 邻居不足 2 个时返回空结果。
func GeneratePaths(base string, graph Graph, snapshot exchange.MarketSnapshot) []Path {
	neighbors := graph.Neighbors(base)
	if len(neighbors) < 2 {
		return nil
	}

	// 固定枚举顺序，保证同一快照下的发现顺序可复现。
	currencies := make([]string, 0, len(neighbors))
	for currency := range neighbors {
		if currency == base {
			continue
		}
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	paths := make([]Path, 0, len(currencies)*(len(currencies)-1))
	for _, a := range currencies {
		for _, b := range currencies {
			if a == b {
				continue
			}
			if _, ok := snapshot.Pair(a + "/" + b); !ok {
				if _, ok := snapshot.Pair(b + "/" + a); !ok {
					continue
				}
			}
			paths = append(paths, Path{base, a, b, base})
		}
	}

	return paths
}
