package algo

import (
	"travel-heatmap/model"
	"travel-heatmap/utils"
)

// Graph 离线路网，用于不依赖外部服务的出行时间估算
type Graph struct {
	Nodes    map[string]*model.Node   // 节点字典 (ID -> Node)
	AdjList  map[string][]*model.Edge // 邻接表 (ID -> 边列表)
	NodeList []model.Node             // 节点列表 (用于遍历)
}

// NewGraph 创建一个空的图
func NewGraph() *Graph {
	return &Graph{
		Nodes:   make(map[string]*model.Node),
		AdjList: make(map[string][]*model.Edge),
	}
}

// BuildGraph 由节点和边构建图
// 距离为 0 的边按节点坐标计算距离; 步行/骑行/驾车的边自动补上反向边
func BuildGraph(nodes []model.Node, edges []model.Edge) *Graph {
	g := NewGraph()
	for i := range nodes {
		node := &nodes[i]
		g.Nodes[node.ID] = node
		g.NodeList = append(g.NodeList, *node)
	}

	for i := range edges {
		edge := &edges[i]
		edge.ModeMask = model.ParseModes(edge.Modes)

		if edge.Dist == 0 {
			from, to := g.Nodes[edge.From], g.Nodes[edge.To]
			if from != nil && to != nil {
				edge.Dist = utils.HaversineDistance(from.Point(), to.Point())
			}
		}
		g.AdjList[edge.From] = append(g.AdjList[edge.From], edge)

		// 公交和地铁是单向线路，不添加反向边
		if edge.ModeMask&model.ModeBidirectional != 0 && !g.hasEdge(edge.To, edge.From) {
			g.AdjList[edge.To] = append(g.AdjList[edge.To], &model.Edge{
				From:     edge.To,
				To:       edge.From,
				Dist:     edge.Dist,
				Modes:    bidirectionalModes(edge.Modes),
				ModeMask: edge.ModeMask & model.ModeBidirectional,
				Desc:     edge.Desc + " (反向)",
			})
		}
	}
	return g
}

func (g *Graph) hasEdge(from, to string) bool {
	for _, e := range g.AdjList[from] {
		if e.To == to {
			return true
		}
	}
	return false
}

// GetNeighbors 获取指定节点在特定交通方式下的邻居边
func (g *Graph) GetNeighbors(nodeID string, modeMask int) []*model.Edge {
	var valid []*model.Edge
	for _, edge := range g.AdjList[nodeID] {
		if edge.ModeMask&modeMask != 0 {
			valid = append(valid, edge)
		}
	}
	return valid
}

// FindNearestNode 找到离给定坐标最近的节点及其距离 (米)
func (g *Graph) FindNearestNode(p model.WorldPoint) (*model.Node, float64) {
	var nearest *model.Node
	minDist := -1.0
	for _, node := range g.Nodes {
		dist := utils.HaversineDistance(p, node.Point())
		if minDist < 0 || dist < minDist {
			minDist = dist
			nearest = node
		}
	}
	return nearest, minDist
}

func bidirectionalModes(modes []string) []string {
	var out []string
	for _, m := range modes {
		if mode, ok := model.LookupMode(m); ok && mode.Mask&model.ModeBidirectional != 0 {
			out = append(out, m)
		}
	}
	return out
}
