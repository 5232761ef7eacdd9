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
	"net/http"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/dto"
	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/spec"
	"github.com/zintix-labs/slotstrike/stats"
)

// SimResponse 對外格式：used 以毫秒表示
type SimResponse struct {
	Report   *stats.StatReport        `json:"report"`
	Sessions *stats.EstimatorSessions `json:"sessions"`
	UsedMs   int64                    `json:"used_ms"`
}

func newSimResponse(res *slotstrike.SimResult) SimResponse {
	return SimResponse{Report: res.Report, Sessions: res.Sessions, UsedMs: res.Used.Milliseconds()}
}

// Sim GET query 或 POST JSON：sessions / rounds / workers / bet / seed
func (h *Handler) Sim(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimRequest(r)
	if err == nil {
		err = req.Within(h.limit)
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := h.ctx(r, h.simTimeout)
	defer cancel()
	res, err := h.rt.Simulate(ctx, req)
	if err != nil {
		h.fail(w, "sim", err)
		return
	}
	httperr.JSON(w, http.StatusOK, newSimResponse(res))
}

// SimByConfig POST {"cfg":{...GameSetting}, "sessions":..}：以自帶設定模擬，調校用
func (h *Handler) SimByConfig(w http.ResponseWriter, r *http.Request) {
	req, err := dto.DecodeSimConfigRequest(r)
	if err == nil {
		err = req.Within(h.limit)
	}
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	gs, err := spec.GetGameSettingByJSON(req.Config)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	ctx, cancel := h.ctx(r, h.simTimeout)
	defer cancel()
	res, err := h.rt.SimulateSetting(ctx, gs, &req.SimRequest)
	if err != nil {
		h.fail(w, "sim.config", err)
		return
	}
	httperr.JSON(w, http.StatusOK, newSimResponse(res))
}
