// Package hexgrid 提供六边形网格的轴向坐标运算。
// 坐标采用轴向坐标系(q, r)，第三个立方体坐标s由s = -q - r推导。
package hexgrid

// Coord 轴向坐标
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S 返回隐含的第三个立方体坐标
func (c Coord) S() int {
	return -c.Q - c.R
}

// Add 坐标相加
func (c Coord) Add(other Coord) Coord {
	return Coord{Q: c.Q + other.Q, R: c.R + other.R}
}

// Scale 坐标乘以系数
func (c Coord) Scale(factor int) Coord {
	return Coord{Q: c.Q * factor, R: c.R * factor}
}

// Directions 六个相邻方向的固定顺序（邻接检查与渲染消费方共用此顺序）
var Directions = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors 返回六个相邻坐标（顺序与Directions一致）
func (c Coord) Neighbors() [6]Coord {
	var result [6]Coord
	for i, dir := range Directions {
		result[i] = c.Add(dir)
	}
	return result
}

// Distance 两坐标间的六边形距离（立方体坐标绝对差的最大值）
func Distance(a, b Coord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())

	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// Ring 返回以center为中心、半径为radius的环上全部坐标。
// 从center + Directions[4]*radius出发，沿六条边依次行走。
func Ring(center Coord, radius int) []Coord {
	if radius <= 0 {
		return []Coord{center}
	}

	result := make([]Coord, 0, 6*radius)
	cur := center.Add(Directions[4].Scale(radius))
	for i := 0; i < 6; i++ {
		for j := 0; j < radius; j++ {
			result = append(result, cur)
			cur = cur.Add(Directions[i])
		}
	}
	return result
}

// Spiral 返回以center为中心、半径不超过radius的全部坐标（由内向外）
func Spiral(center Coord, radius int) []Coord {
	result := []Coord{center}
	for r := 1; r <= radius; r++ {
		result = append(result, Ring(center, r)...)
	}
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
