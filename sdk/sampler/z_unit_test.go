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
	"math"
	"slices"
	"testing"

	"github.com/zintix-labs/slotstrike/sdk/core"
)

func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for %s", msg)
		}
	}()
	f()
}

// checkDistribution 驗證抽樣頻率與權重比例差距在 tolerance 內
func checkDistribution(t *testing.T, name string, weights []int, samples []int, tolerance float64) {
	t.Helper()
	total := 0
	for _, w := range weights {
		total += w
	}
	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Fatalf("[%s] index %d has weight 0 but sampled %d times", name, i, counts[i])
			}
			continue
		}
		want := float64(w) / float64(total)
		got := float64(counts[i]) / float64(len(samples))
		if math.Abs(want-got) > tolerance {
			t.Fatalf("[%s] index %d: want %.3f got %.3f", name, i, want, got)
		}
	}
}

func TestLUTTierWeights(t *testing.T) {
	c := core.NewSeeded(7)
	weights := []int{20, 55, 20, 5}
	lut := BuildLUT(weights)
	if len(lut) != 100 {
		t.Fatalf("lut size: want 100 got %d", len(lut))
	}
	samples := make([]int, 200_000)
	for i := range samples {
		samples[i] = lut.Pick(c)
	}
	checkDistribution(t, "lut", weights, samples, 0.01)
}

func TestLUTEdges(t *testing.T) {
	if got := BuildLUT([]int{}).Pick(core.NewSeeded(1)); got != -1 {
		t.Fatalf("empty lut pick: want -1 got %d", got)
	}
	assertPanic(t, func() { BuildLUT([]int{1, -1}) }, "negative weight")
	assertPanic(t, func() { BuildLUT([]int{0, 0}) }, "zero weights")
	assertPanic(t, func() { BuildLUT([]int{2_000_000}) }, "oversized lut")
}

func TestAliasTableDistribution(t *testing.T) {
	c := core.NewSeeded(11)
	weights := []int{60, 40, 0, 7}
	at := BuildAliasTable(weights)
	samples := make([]int, 200_000)
	for i := range samples {
		samples[i] = at.Pick(c)
	}
	checkDistribution(t, "alias", weights, samples, 0.01)
}

func TestAliasTableEdges(t *testing.T) {
	if got := BuildAliasTable(nil).Pick(core.NewSeeded(1)); got != -1 {
		t.Fatalf("empty alias pick: want -1 got %d", got)
	}
	assertPanic(t, func() { BuildAliasTable([]int{-3}) }, "negative weight")
	assertPanic(t, func() { BuildAliasTable([]int{0}) }, "zero weights")
	at := BuildAliasTable([]int{5})
	c := core.NewSeeded(3)
	for range 100 {
		if at.Pick(c) != 0 {
			t.Fatalf("single option must always be picked")
		}
	}
}

func TestWeightedSampleUniqueAndBounded(t *testing.T) {
	c := core.NewSeeded(5)
	weights := []int{60, 60, 30, 0, 10, 30}
	for range 1000 {
		got := WeightedSample(c, weights, 3)
		if len(got) != 3 {
			t.Fatalf("want 3 picks got %d", len(got))
		}
		if slices.Contains(got, 3) {
			t.Fatalf("zero weight index picked: %v", got)
		}
		s := slices.Clone(got)
		slices.Sort(s)
		if len(slices.Compact(s)) != 3 {
			t.Fatalf("duplicate picks: %v", got)
		}
	}
	if got := WeightedSample(c, []int{0, 4, 0}, 3); len(got) != 1 || got[0] != 1 {
		t.Fatalf("only one valid item: got %v", got)
	}
	if got := WeightedSample(c, weights, 0); len(got) != 0 {
		t.Fatalf("k=0: got %v", got)
	}
}

func TestWeightedSampleFirstPickFollowsWeights(t *testing.T) {
	c := core.NewSeeded(9)
	weights := []int{60, 30, 10}
	first := make([]int, 100_000)
	for i := range first {
		first[i] = WeightedSample(c, weights, 2)[0]
	}
	checkDistribution(t, "first-pick", weights, first, 0.01)
}
