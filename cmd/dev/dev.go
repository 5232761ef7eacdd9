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
// cmd/dev 以內建設定啟動 server（掛載 /dev 面板），就緒後開瀏覽器。
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os/exec"
	"runtime"
	"time"

	"github.com/zintix-labs/slotstrike"
	"github.com/zintix-labs/slotstrike/sdk/core"
	"github.com/zintix-labs/slotstrike/server"
	"github.com/zintix-labs/slotstrike/server/logger"
	"github.com/zintix-labs/slotstrike/server/netsvr"
	"github.com/zintix-labs/slotstrike/server/svrcfg"
	"github.com/zintix-labs/slotstrike/spec"
)

func main() {
	addr := flag.String("addr", netsvr.DefaultAddr, "listen address")
	setting := flag.String("config", "", "game setting file, empty for built-in")
	noOpen := flag.Bool("no-open", false, "do not open the browser")
	flag.Parse()

	if err := runDevPanel(*addr, *setting, !*noOpen); err != nil {
		log.Fatal(err)
	}
}

func runDevPanel(addr, setting string, open bool) error {
	lg, closeLog := logger.New(logger.Options{Mode: logger.ModeDev, Async: 1024})
	defer closeLog()

	gs, err := spec.Load(setting)
	if err != nil {
		return err
	}
	lab, err := slotstrike.New(core.Default(), gs, lg)
	if err != nil {
		return err
	}
	rt, err := lab.BuildRuntime(slotstrike.RuntimeConfig{Sessions: 64, TTL: 10 * time.Minute})
	if err != nil {
		return err
	}

	if open {
		url := "http://" + dialAddr(addr) + "/dev"
		go func() {
			// 等 server 真的在 listen 再開瀏覽器
			if err := waitForTCP(addr, 5*time.Second); err != nil {
				log.Print("dev server not ready: " + err.Error())
				return
			}
			if err := openBrowser(url); err != nil {
				log.Print("open browser failed: " + err.Error())
			}
		}()
	}
	sCfg := &svrcfg.SvrCfg{Log: lg, Runtime: rt, Dev: true}
	return server.RunWithSvr(sCfg, netsvr.NewChiServer(netsvr.Options{Addr: addr}))
}

// dialAddr ":5808" → "127.0.0.1:5808"
func dialAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return "127.0.0.1:" + port
	}
	return addr
}

func waitForTCP(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	target := dialAddr(addr)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", target, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for %s", addr)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
