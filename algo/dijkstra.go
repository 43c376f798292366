package algo

import (
	"container/heap"
	"math"
	"slices"

	"travel-heatmap/model"
)

// PathResult 路径规划结果
type PathResult struct {
	Path          []string // 节点 ID 序列
	Distance      float64  // 总距离 (米)
	EstimatedTime float64  // 预计总时间 (秒)，含换乘等待
	Found         bool
}

// PriorityQueueItem 优先队列中的元素
type PriorityQueueItem struct {
	NodeID string
	Cost   float64 // 时间成本 (秒)
	Mode   string  // 到达该节点使用的交通方式
	LineID string  // 到达该节点使用的线路ID
	Index  int     // 在堆中的索引
}

// PriorityQueue 实现 heap.Interface 接口的优先队列
type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool { return pq[i].Cost < pq[j].Cost }

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x any) {
	item := x.(*PriorityQueueItem)
	item.Index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[:n-1]
	return item
}

// Dijkstra 寻找 startID 到 endID 的最短时间路径
func (g *Graph) Dijkstra(startID, endID string, modeMask int) PathResult {
	if g.Nodes[startID] == nil || g.Nodes[endID] == nil {
		return PathResult{}
	}
	if startID == endID {
		return PathResult{Path: []string{startID}, Found: true}
	}

	timeCost := map[string]float64{startID: 0}
	distance := map[string]float64{startID: 0}
	prev := make(map[string]string)
	visited := make(map[string]bool)

	pq := PriorityQueue{}
	heap.Push(&pq, &PriorityQueueItem{NodeID: startID})

	for pq.Len() > 0 {
		current := heap.Pop(&pq).(*PriorityQueueItem)
		if visited[current.NodeID] {
			continue
		}
		visited[current.NodeID] = true
		if current.NodeID == endID {
			break
		}

		for _, edge := range g.GetNeighbors(current.NodeID, modeMask) {
			available := model.FilterModesByMask(edge.Modes, modeMask)
			if len(available) == 0 {
				continue
			}
			edgeTime, usedMode := model.EstimateSegmentTime(edge.Dist, available, current.Mode, current.LineID, edge.LineID)

			newCost := timeCost[current.NodeID] + edgeTime
			if old, ok := timeCost[edge.To]; ok && newCost >= old {
				continue
			}
			timeCost[edge.To] = newCost
			distance[edge.To] = distance[current.NodeID] + edge.Dist
			prev[edge.To] = current.NodeID
			heap.Push(&pq, &PriorityQueueItem{
				NodeID: edge.To,
				Cost:   newCost,
				Mode:   usedMode,
				LineID: edge.LineID,
			})
		}
	}

	cost, ok := timeCost[endID]
	if !ok || math.IsInf(cost, 1) {
		return PathResult{}
	}

	path := []string{endID}
	for at := endID; at != startID; {
		at = prev[at]
		path = append(path, at)
	}
	slices.Reverse(path)

	return PathResult{
		Path:          path,
		Distance:      distance[endID],
		EstimatedTime: cost,
		Found:         true,
	}
}
