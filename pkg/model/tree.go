package model

import "math"

// Node is one entry of a flattened regression tree. Internal nodes send x[Feature] <= Threshold
// (and missing values) to Left, everything else to Right.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// Tree is a regression tree over raw scores; Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		v := x[n.Feature]
		if math.IsNaN(v) || v <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	c := 0
	for _, n := range t.Nodes {
		if n.Leaf {
			c++
		}
	}
	return c
}

// Depth returns the longest root-to-leaf path, counted in edges.
func (t *Tree) Depth() int {
	var walk func(i, d int) int
	walk = func(i, d int) int {
		n := t.Nodes[i]
		if n.Leaf {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	return walk(0, 0)
}

// ---------------------------
// Leaf-wise histogram builder
// ---------------------------

type histBin struct {
	G, H float64
	N    int
}

type splitInfo struct {
	feature int // -1 when the leaf cannot be split
	bin     int
	gain    float64
	leftG   float64
	leftH   float64
}

type leaf struct {
	node  int
	rows  []int
	depth int
	g, h  float64
	hist  [][]histBin
	best  splitInfo
}

type treeBuilder struct {
	params   *Params
	mapper   *binMapper
	bins     [][]uint8
	grad     []float64
	hess     []float64
	features []int
}

// build grows one tree on rows, always splitting the leaf with the largest gain
// until NumLeaves is reached or no leaf has a valid split.
func (b *treeBuilder) build(rows []int) Tree {
	t := Tree{Nodes: []Node{{Leaf: true, Left: -1, Right: -1}}}
	root := &leaf{node: 0, rows: rows}
	for _, i := range rows {
		root.g += b.grad[i]
		root.h += b.hess[i]
	}
	root.hist = b.histogram(rows)
	b.findSplit(root)

	leaves := []*leaf{root}
	for len(leaves) < b.params.NumLeaves {
		best := -1
		for i, l := range leaves {
			if l.best.feature >= 0 && (best < 0 || l.best.gain > leaves[best].best.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		left, right := b.split(&t, leaves[best])
		leaves[best] = left
		leaves = append(leaves, right)
	}

	for _, l := range leaves {
		t.Nodes[l.node].Value = leafOutput(l.g, l.h, b.params)
	}
	return t
}

func (b *treeBuilder) split(t *Tree, parent *leaf) (*leaf, *leaf) {
	s := parent.best
	col := b.bins[s.feature]
	lrows := make([]int, 0, len(parent.rows))
	rrows := make([]int, 0, len(parent.rows))
	for _, i := range parent.rows {
		if int(col[i]) <= s.bin {
			lrows = append(lrows, i)
		} else {
			rrows = append(rrows, i)
		}
	}

	li := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{Leaf: true, Left: -1, Right: -1}, Node{Leaf: true, Left: -1, Right: -1})
	n := &t.Nodes[parent.node]
	n.Leaf = false
	n.Feature = s.feature
	n.Threshold = b.mapper.threshold(s.feature, s.bin)
	n.Left = li
	n.Right = li + 1

	left := &leaf{node: li, rows: lrows, depth: parent.depth + 1, g: s.leftG, h: s.leftH}
	right := &leaf{node: li + 1, rows: rrows, depth: parent.depth + 1, g: parent.g - s.leftG, h: parent.h - s.leftH}

	// Build the smaller child directly; the larger one is parent minus smaller.
	small, large := left, right
	if len(rrows) < len(lrows) {
		small, large = right, left
	}
	small.hist = b.histogram(small.rows)
	large.hist = parent.hist
	parent.hist = nil
	for _, f := range b.features {
		dst, src := large.hist[f], small.hist[f]
		for k := range dst {
			dst[k].G -= src[k].G
			dst[k].H -= src[k].H
			dst[k].N -= src[k].N
		}
	}

	b.findSplit(left)
	b.findSplit(right)
	return left, right
}

func (b *treeBuilder) histogram(rows []int) [][]histBin {
	hist := make([][]histBin, len(b.bins))
	for _, f := range b.features {
		h := make([]histBin, b.mapper.numBins(f))
		col := b.bins[f]
		for _, i := range rows {
			bin := &h[col[i]]
			bin.G += b.grad[i]
			bin.H += b.hess[i]
			bin.N++
		}
		hist[f] = h
	}
	return hist
}

// findSplit scans the histogram of every sampled feature for the best "bin <= k" split.
// Ties keep the earlier feature and the lower bin.
func (b *treeBuilder) findSplit(l *leaf) {
	l.best = splitInfo{feature: -1}
	p := b.params
	if p.MaxDepth > 0 && l.depth >= p.MaxDepth {
		return
	}
	n := len(l.rows)
	if n < 2*p.MinChildSamples {
		return
	}
	parentGain := leafGain(l.g, l.h, p)
	for _, f := range b.features {
		hist := l.hist[f]
		var gl, hl float64
		nl := 0
		for k := 0; k < len(hist)-1; k++ {
			gl += hist[k].G
			hl += hist[k].H
			nl += hist[k].N
			if nl < p.MinChildSamples || hl < p.MinChildWeight {
				continue
			}
			hr := l.h - hl
			if n-nl < p.MinChildSamples || hr < p.MinChildWeight {
				break
			}
			gain := leafGain(gl, hl, p) + leafGain(l.g-gl, hr, p) - parentGain
			if gain > p.MinSplitGain && gain > l.best.gain {
				l.best = splitInfo{feature: f, bin: k, gain: gain, leftG: gl, leftH: hl}
			}
		}
	}
}

func thresholdL1(s, l1 float64) float64 {
	r := math.Max(0, math.Abs(s)-l1)
	if s < 0 {
		return -r
	}
	return r
}

func leafGain(g, h float64, p *Params) float64 {
	denom := h + p.RegLambda
	if denom <= 0 {
		return 0
	}
	t := thresholdL1(g, p.RegAlpha)
	return t * t / denom
}

func leafOutput(g, h float64, p *Params) float64 {
	denom := h + p.RegLambda
	if denom <= 0 {
		return 0
	}
	return -thresholdL1(g, p.RegAlpha) / denom * p.LearningRate
}
