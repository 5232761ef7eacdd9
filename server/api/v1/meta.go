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

	"github.com/zintix-labs/slotstrike/server/httperr"
	"github.com/zintix-labs/slotstrike/server/netsvr"
)

// Draw GET /v1/draw/{tier}：直接從盤面池抽指定等級（miss/small/mid/big）
func (h *Handler) Draw(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r, h.timeout)
	defer cancel()
	o, err := h.rt.Draw(ctx, netsvr.URLParam(r, "tier"))
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, o)
}

// Setting GET /v1/setting：預設 YAML，?format=json 回 JSON
func (h *Handler) Setting(w http.ResponseWriter, r *http.Request) {
	gs := h.rt.Setting()
	if r.URL.Query().Get("format") == "json" {
		httperr.JSON(w, http.StatusOK, gs)
		return
	}
	b, err := gs.YAML()
	if err != nil {
		h.fail(w, "setting.yaml", err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(b)
}

// Metrics GET /v1/metrics：runtime 與 session 池的拉取式快照
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	httperr.JSON(w, http.StatusOK, h.rt.Metrics())
}
