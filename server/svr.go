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
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/slotstrike/errs"
	"github.com/zintix-labs/slotstrike/server/api"
	"github.com/zintix-labs/slotstrike/server/app"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
)

// Run 是 server 套件的組裝器與啟動入口：驗證 SvrCfg、建立預設 chi server、註冊路由後阻塞到收到信號。
//
// Run 不讀檔案也不讀環境變數；依賴都由 SvrCfg 注入（cmd/svr 負責讀設定）。
// Runtime 在所有 Component 關閉後才 Close，讓進行中的 spin 有機會回應。
func Run(sCfg *svrcfg.SvrCfg) error {
	return serve(sCfg, nil, (*app.App).Run)
}

// RunWithSvr 與 Run 相同，但使用呼叫端注入的 NetSvr（自訂 listener、timeout、或掛進既有服務）。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if svr == nil {
		return errs.NewFatal("svr is required")
	}
	return serve(sCfg, svr, (*app.App).Run)
}

// RunContext ctx 結束視同收到終止信號，不掛 OS signal；svr 為 nil 時使用預設 ChiAdapter
func RunContext(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	return serve(sCfg, svr, func(a *app.App) error { return a.RunContext(ctx) })
}

func serve(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, run func(*app.App) error) error {
	if err := sCfg.Valid(); err != nil {
		// 防止外層傳入的 logger 不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		svr = netsvr.NewChiServerDefault()
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.NewFatal("default server is not ready")
	}

	api.RegisterRoutes(svr, sCfg)

	a := app.NewWith(svr)
	a.OnStop(func() error {
		sCfg.Runtime.Close()
		return nil
	})
	sCfg.Log.Info("[slotstrike] listening", slog.String("addr", addr(svr)))

	err := run(a)
	if err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
	}
	return err
}

func addr(svr netsvr.NetSvr) string {
	if s, ok := svr.(interface{ Address() string }); ok {
		return s.Address()
	}
	return "custom"
}
