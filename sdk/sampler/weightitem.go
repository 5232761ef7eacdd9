// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"container/heap"

	"github.com/zintix-labs/slotstrike/sdk/core"
)

// weightItem 加權排序單元：score = Exp(1) / weight，越小越前面
type weightItem struct {
	idx   int
	score float64
}

// weightHeap Max-Heap，堆頂是目前入選者中分數最大（最該被淘汰）的那個
type weightHeap []weightItem

func (h weightHeap) Len() int           { return len(h) }
func (h weightHeap) Less(i, j int) bool { return h[i].score > h[j].score }
func (h weightHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *weightHeap) Push(x any) {
	*h = append(*h, x.(weightItem))
}

func (h *weightHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// WeightedSample 加權不放回抽 k 個（Efraimidis-Spirakis A-Res）。
//
// 分佈等同「依權重抽一個、移出、再抽」重複 k 次，回傳依抽出先後排序。
// 權重 0 永不入選；有效項目不足 k 時回傳較短的結果。
func WeightedSample(c *core.Core, weights []int, k int) []int {
	n := len(weights)
	if k <= 0 || n == 0 {
		return []int{}
	}
	k = min(k, n)

	h := make(weightHeap, 0, k)
	for i, w := range weights {
		if w < 0 {
			panic("WeightedSample: negative weight")
		}
		if w == 0 {
			continue
		}
		score := c.ExpFloat64() / float64(w)
		if h.Len() < k {
			heap.Push(&h, weightItem{idx: i, score: score})
			continue
		}
		if score < h[0].score {
			h[0] = weightItem{idx: i, score: score}
			heap.Fix(&h, 0)
		}
	}

	result := make([]int, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(weightItem).idx
	}
	return result
}
