package arbitrage

import "triarb/internal/exchange"

// Edge 表示一条可交易的货币跳转，记录对应的交易对符号及报价方向。
// BaseLeft 为 true 时，跳转起点货币位于符号的基准侧（分子）。
type Edge struct {
	Symbol   string
	BaseLeft bool
}

// Graph 为货币可达性邻接表：货币 → 可直接兑换到的货币及其边。
type Graph map[string]map[string]Edge

// BuildGraph 从行情快照构建货币图。每个交易对 base/quote 产生两条有向边：
// base 经正向报价到达 quote，quote 经反向报价到达 base。
// 空快照得到空图，没有失败路径。
func BuildGraph(snapshot exchange.MarketSnapshot) Graph {
	graph := make(Graph, len(snapshot.Pairs)*2)

	for symbol, pair := range snapshot.Pairs {
		addEdge(graph, pair.Base, pair.Quote, Edge{Symbol: symbol, BaseLeft: true})
		addEdge(graph, pair.Quote, pair.Base, Edge{Symbol: symbol, BaseLeft: false})
	}

	return graph
}

func addEdge(graph Graph, from, to string, edge Edge) {
	edges, ok := graph[from]
	if !ok {
		edges = make(map[string]Edge)
		graph[from] = edges
	}
	edges[to] = edge
}

// Neighbors 返回从某货币出发一跳可达的货币集合。
func (g Graph) Neighbors(currency string) map[string]Edge {
	return g[currency]
}
