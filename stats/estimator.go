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

package stats

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// EstimatorSessions 以 session 為單位的體驗評估
type EstimatorSessions struct {
	RtpStat     RtpStat
	EventStat   EventStat
	LevelStat   LevelStat
	SessionStat SessionStat
}

// Rtp敘事
type RtpStat struct {
	ExpMedian PointStat // 描述體驗的中位數
	ExpPerc   ExpPerc   // 描述玩家的分布(對應RTP)
	RtpPerc   RtpPerc   // 描述Rtp的分布(對應多少比例的玩家)
}

// 用玩家體驗分位數視角看: 最差10％玩家的RTP 最差33%玩家的RTP ...
type ExpPerc struct {
	ExpP10 PointStat
	ExpP33 PointStat
	ExpP67 PointStat
	ExpP90 PointStat
}

// 用Rtp分位數視角看玩家: 有多少玩家體驗到了30%RTP 有多少玩家體驗到了50%RTP ...
type RtpPerc struct {
	Rtp30  PointStat
	Rtp50  PointStat
	Rtp70  PointStat
	Rtp100 PointStat
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// 事件敘事
type EventStat struct {
	BossKills EventCount
	Bucket    BucketEvent
}

// 事件點估計
type EventCount struct {
	Zero PointStat
	One  PointStat
	Two  PointStat
	More PointStat
}

// 對應分桶的統計
type BucketEvent struct {
	BucketLable []string     // 分桶標籤
	BucketCount []EventCount // 分桶事件點估計
}

// LevelStat 到達關卡
type LevelStat struct {
	Mean   float64
	Std    float64
	Median PointStat
	P10    PointStat
	P90    PointStat
}

// 對應結果敘事
type SessionStat struct {
	GameOver PointStat // 敵人到底
	Alive    PointStat // 跑完所有回合
}

// ============================================================
// ** 對外 : 體驗評估 **
// ============================================================

// EstimateSessions 每個 report 代表一個 session
//
// 1. RTP 敘事 : session RTP 的分位數
//
// 2. Event 敘事 : 擊殺 boss 次數、各贏倍區間出現次數的比例
//
// 3. Level / Session 敘事 : 到達關卡分布、game over 比例
func EstimateSessions(sts []*StatReport) *EstimatorSessions {
	n := len(sts)
	out := &EstimatorSessions{}
	if n == 0 {
		return out
	}

	// 1) RTP
	rtp := make([]float64, n)
	for i, s := range sts {
		rtp[i] = s.Rtp()
	}
	out.RtpStat = RtpStat{
		ExpMedian: quantileStat(rtp, 0.5),
		ExpPerc: ExpPerc{
			ExpP10: quantileStat(rtp, 0.10),
			ExpP33: quantileStat(rtp, 1.0/3.0),
			ExpP67: quantileStat(rtp, 2.0/3.0),
			ExpP90: quantileStat(rtp, 0.90),
		},
		RtpPerc: RtpPerc{
			Rtp30:  valueStat(rtp, 0.30),
			Rtp50:  valueStat(rtp, 0.50),
			Rtp70:  valueStat(rtp, 0.70),
			Rtp100: valueStat(rtp, 1.00),
		},
	}

	// 2) Event
	bossKills := make([]int, n)
	for i, s := range sts {
		if s.Run != nil {
			bossKills[i] = s.Run.BossKills
		}
	}
	out.EventStat.BossKills = eventCount(bossKills)

	labels := Buckets.WinBucketStr()
	out.EventStat.Bucket = BucketEvent{BucketLable: labels, BucketCount: make([]EventCount, len(labels))}
	cnt := make([]int, n)
	for bi := range labels {
		for i, s := range sts {
			cnt[i] = 0
			if bi < len(s.Dist.TotalWinCollect) {
				cnt[i] = s.Dist.TotalWinCollect[bi]
			}
		}
		out.EventStat.Bucket.BucketCount[bi] = eventCount(cnt)
	}

	// 3) Level / Session
	levels := make([]float64, n)
	var overK int
	for i, s := range sts {
		if s.Run == nil {
			levels[i] = 1
			continue
		}
		levels[i] = float64(s.Run.Level)
		if s.Run.GameOvers > 0 {
			overK++
		}
	}
	mean, std := stat.MeanStdDev(levels, nil)
	if n < 2 {
		std = 0
	}
	out.LevelStat = LevelStat{
		Mean:   mean,
		Std:    std,
		Median: quantileStat(levels, 0.5),
		P10:    quantileStat(levels, 0.10),
		P90:    quantileStat(levels, 0.90),
	}
	overHat, overCI := proportionCICP(overK, n, 0.95)
	aliveHat, aliveCI := proportionCICP(n-overK, n, 0.95)
	out.SessionStat = SessionStat{
		GameOver: PointStat{Hat: overHat, CI: overCI},
		Alive:    PointStat{Hat: aliveHat, CI: aliveCI},
	}
	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

func quantileStat(data []float64, q float64) PointStat {
	lo, hi := quantileCI(data, q, 0.95)
	return PointStat{Hat: quantilePoint(data, q), CI: CI{Lo: lo, Hi: hi}}
}

func valueStat(data []float64, x0 float64) PointStat {
	hat, ci := percentileCIForValue(data, x0, 0.95)
	return PointStat{Hat: hat, CI: ci}
}

// eventCount 0 / 1 / 2 / 3+ 次的比例
func eventCount(counts []int) EventCount {
	n := len(counts)
	var c [4]int
	for _, v := range counts {
		c[min(max(v, 0), 3)]++
	}
	ps := func(k int) PointStat {
		hat, ci := proportionCICP(k, n, 0.95)
		return PointStat{Hat: hat, CI: ci}
	}
	return EventCount{Zero: ps(c[0]), One: ps(c[1]), Two: ps(c[2]), More: ps(c[3])}
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 給定樣本 data 與門檻 x0，估計 p = P(X ≤ x0) 的點估計與 CI 區間
func percentileCIForValue(data []float64, x0 float64, confidence float64) (pHat float64, ci CI) {
	n := len(data)
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 0}
	}
	k := 0
	for _, v := range data {
		if v <= x0 {
			k++
		}
	}
	return proportionCICP(k, n, confidence)
}

// 第 q 分位的上下界：order statistic 的秩視為二項 → Beta 反推 p 範圍，再把 p 轉回樣本索引
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return data[0], data[0]
	}
	cp := sorted(data)

	alpha := 1 - confidence
	k := min(max(int(q*float64(n)), 1), n-1)

	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := min(max(int(pLo*float64(n)), 0), n-1)
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	ui = min(max(ui, 0), n-1)
	return cp[li], cp[ui]
}

// quantilePoint 經驗分位數
func quantilePoint(data []float64, q float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Quantile(q, stat.Empirical, sorted(data), nil)
}

func sorted(data []float64) []float64 {
	cp := make([]float64, len(data))
	copy(cp, data)
	sort.Float64s(cp)
	return cp
}

// ============================================================
// ** 輸出函數 **
// ============================================================

// Write 文字輸出
func (est *EstimatorSessions) Write(w io.Writer) {
	fmt.Fprintln(w, "=== RTP (per session) ===")
	rtpKeys := []string{
		"Median RTP",
		"P10 RTP",
		"P33 RTP",
		"P67 RTP",
		"P90 RTP",
		"≤30% RTP (sessions)",
		"≤50% RTP (sessions)",
		"≤70% RTP (sessions)",
		"≤100% RTP (sessions)",
	}
	rs := est.RtpStat
	rtpMsg := map[string]string{
		"Median RTP":           fmtPoint(rs.ExpMedian),
		"P10 RTP":              fmtPoint(rs.ExpPerc.ExpP10),
		"P33 RTP":              fmtPoint(rs.ExpPerc.ExpP33),
		"P67 RTP":              fmtPoint(rs.ExpPerc.ExpP67),
		"P90 RTP":              fmtPoint(rs.ExpPerc.ExpP90),
		"≤30% RTP (sessions)":  fmtPoint(rs.RtpPerc.Rtp30),
		"≤50% RTP (sessions)":  fmtPoint(rs.RtpPerc.Rtp50),
		"≤70% RTP (sessions)":  fmtPoint(rs.RtpPerc.Rtp70),
		"≤100% RTP (sessions)": fmtPoint(rs.RtpPerc.Rtp100),
	}
	printTable(w, rtpKeys, rtpMsg)

	fmt.Fprintln(w, "\n=== Events: boss kills per session ===")
	fmt.Fprintf(w, "  %s\n", fmtEventCount(est.EventStat.BossKills))

	fmt.Fprintln(w, "\n=== Events: Buckets (per session hits in bucket) ===")
	for i, label := range est.EventStat.Bucket.BucketLable {
		fmt.Fprintf(w, "%-12s : %s\n", label, fmtEventCount(est.EventStat.Bucket.BucketCount[i]))
	}

	ls := est.LevelStat
	fmt.Fprintln(w, "\n=== Level reached ===")
	printTable(w, []string{"Mean ± Std", "Median", "P10", "P90"}, map[string]string{
		"Mean ± Std": fmt.Sprintf("%.2f ± %.2f", ls.Mean, ls.Std),
		"Median":     fmtLevel(ls.Median),
		"P10":        fmtLevel(ls.P10),
		"P90":        fmtLevel(ls.P90),
	})

	fmt.Fprintln(w, "\n=== Session Outcome ===")
	printTable(w, []string{"Game Over", "Alive"}, map[string]string{
		"Game Over": fmtPoint(est.SessionStat.GameOver),
		"Alive":     fmtPoint(est.SessionStat.Alive),
	})
}

func printTable(w io.Writer, keys []string, msg map[string]string) {
	maxKeyLen := 0
	for _, k := range keys {
		maxKeyLen = max(maxKeyLen, len(k))
	}
	for _, k := range keys {
		fmt.Fprintf(w, "  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtPoint(p PointStat) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(p.Hat), fmtPct01(p.CI.Lo), fmtPct01(p.CI.Hi))
}

func fmtLevel(p PointStat) string {
	return fmt.Sprintf("%.0f [%.0f, %.0f]", p.Hat, p.CI.Lo, p.CI.Hi)
}

func fmtEventCount(ec EventCount) string {
	return fmt.Sprintf("0x: %s | 1x: %s | 2x: %s | 3+x: %s",
		fmtPoint(ec.Zero),
		fmtPoint(ec.One),
		fmtPoint(ec.Two),
		fmtPoint(ec.More),
	)
}
