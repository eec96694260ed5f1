package reconstruct

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree. Leaves carry the mean target
// value of the rows that reached them.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

// minSamplesSplit is the smallest node a split is attempted on.
const minSamplesSplit = 4

// fitTree grows a depth-limited regression tree on the given rows,
// minimizing squared error. candidates restricts which feature columns a
// split may use (column subsampling).
func fitTree(x [][]float64, y []float64, rows []int, candidates []int, maxDepth int) *treeNode {
	if maxDepth == 0 || len(rows) < minSamplesSplit {
		return &treeNode{leaf: true, value: meanAt(y, rows)}
	}

	feature, threshold, ok := bestSplit(x, y, rows, candidates)
	if !ok {
		return &treeNode{leaf: true, value: meanAt(y, rows)}
	}

	var left, right []int
	for _, r := range rows {
		if x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, value: meanAt(y, rows)}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      fitTree(x, y, left, candidates, maxDepth-1),
		right:     fitTree(x, y, right, candidates, maxDepth-1),
	}
}

// bestSplit scans the candidate features for the threshold that minimizes
// the summed squared error of the two children. Thresholds are midpoints
// between consecutive distinct sorted values.
func bestSplit(x [][]float64, y []float64, rows []int, candidates []int) (feature int, threshold float64, ok bool) {
	bestScore := math.Inf(1)

	order := make([]int, len(rows))
	for _, f := range candidates {
		copy(order, rows)
		sortRowsByFeature(x, order, f)

		// Running sums for incremental SSE on the sorted order.
		var leftSum, leftSq float64
		totalSum, totalSq := sumsAt(y, order)

		for i := 0; i < len(order)-1; i++ {
			v := y[order[i]]
			leftSum += v
			leftSq += v * v

			cur, next := x[order[i]][f], x[order[i+1]][f]
			if cur == next {
				continue
			}

			n := float64(i + 1)
			m := float64(len(order) - i - 1)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			score := (leftSq - leftSum*leftSum/n) + (rightSq - rightSum*rightSum/m)
			if score < bestScore {
				bestScore = score
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func sortRowsByFeature(x [][]float64, rows []int, f int) {
	sort.SliceStable(rows, func(i, j int) bool {
		return x[rows[i]][f] < x[rows[j]][f]
	})
}

func meanAt(y []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += y[r]
	}
	return sum / float64(len(rows))
}

func sumsAt(y []float64, rows []int) (sum, sq float64) {
	for _, r := range rows {
		sum += y[r]
		sq += y[r] * y[r]
	}
	return sum, sq
}

// sampleRows draws a subsample of row indices without replacement. A
// fraction of 1 returns the rows unchanged.
func sampleRows(rng *rand.Rand, rows []int, fraction float64) []int {
	n := int(math.Round(fraction * float64(len(rows))))
	if n >= len(rows) {
		return rows
	}
	if n < 1 {
		n = 1
	}
	perm := rng.Perm(len(rows))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = rows[perm[i]]
	}
	return out
}

// sampleColumns draws a subsample of feature columns without replacement.
func sampleColumns(rng *rand.Rand, total int, fraction float64) []int {
	n := int(math.Round(fraction * float64(total)))
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	perm := rng.Perm(total)
	cols := perm[:n]
	// Stable order so tree growth does not depend on permutation layout.
	sort.Ints(cols)
	return cols
}
