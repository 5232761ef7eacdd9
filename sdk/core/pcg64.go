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
package core

import (
	"crypto/rand"
	"math"
	"math/big"
	r2 "math/rand/v2"
)

// pcg64 以 math/rand/v2 的 PCG 為狀態、Rand 為取樣器。
// 有界取樣用 Rand 的乘法高位拒絕法，同 seed 的數列跨平台一致。
type pcg64 struct {
	src *r2.PCG
	*r2.Rand
}

// RandomSeed 加密隨機的非負 seed；讀取失敗時退回 1
func RandomSeed() int64 {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 1
	}
	return seed.Int64()
}

// seed 經 splitmix 展開成 128-bit 狀態，相鄰 seed 的數列互不相關
func newPCG64WithSeed(seed int64) *pcg64 {
	x := uint64(seed) ^ 0x9e3779b97f4a7c15
	src := r2.NewPCG(splitmix64(x), splitmix64(x^0xDA942042E4DD58B5))
	return &pcg64{src: src, Rand: r2.New(src)}
}

func (p *pcg64) UintN(n uint) uint {
	if n == 0 {
		return 0
	}
	return p.Rand.UintN(n)
}

func (p *pcg64) IntN(n int) int {
	if n <= 0 {
		return -1
	}
	return p.Rand.IntN(n)
}

func (p *pcg64) Snapshot() ([]byte, error) { return p.src.MarshalBinary() }
func (p *pcg64) Restore(b []byte) error    { return p.src.UnmarshalBinary(b) }

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
