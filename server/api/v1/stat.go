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
package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/recorder"
	"github.com/zintix-labs/slotstrike/server/httperr"
)

// WinList 外部產生的回合贏分（例如前端重播、其他模擬器），只算統計不跑遊戲
type WinList struct {
	GameName string    `json:"game_name"`
	Bet      float64   `json:"bet"`
	Wins     []float64 `json:"wins"`              // 含 boss 加成
	Bonuses  []float64 `json:"bonuses,omitempty"` // 缺省視為 0
}

// Stat POST WinList → 統計報表
func (h *Handler) Stat(w http.ResponseWriter, r *http.Request) {
	wl := new(WinList)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 5<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(wl); err != nil && err != io.EOF {
		httperr.Errs(w, errs.NewWarn("invalid json: "+err.Error()))
		return
	}
	if len(wl.Wins) == 0 {
		httperr.Errs(w, errs.NewWarn("wins must not be empty"))
		return
	}
	if len(wl.Bonuses) > len(wl.Wins) {
		httperr.Errs(w, errs.NewWarn("bonuses longer than wins"))
		return
	}
	t, err := recorder.NewTally(wl.GameName, wl.Bet)
	if err != nil {
		// bet <= 0 是請求問題
		httperr.Errs(w, errs.NewWarn(err.Error()))
		return
	}
	for i, win := range wl.Wins {
		bonus := 0.0
		if i < len(wl.Bonuses) {
			bonus = wl.Bonuses[i]
		}
		t.Record(win, bonus)
	}
	httperr.JSON(w, http.StatusOK, t.Done())
}
