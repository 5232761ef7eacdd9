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
package spec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/slotstrike/errs"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/slotstrike.yaml
var defaultYAML []byte

// Default 內建設定；每次呼叫都回傳新的實例
func Default() *GameSetting {
	gs, err := GetGameSettingByYAML(nil)
	if err != nil {
		panic(err)
	}
	return gs
}

// defaults 子系統預設值再疊上內建 yaml
func defaults() *GameSetting {
	gs := base()
	if err := decodeYAML(defaultYAML, gs); err != nil {
		panic(err)
	}
	return gs
}

// GetGameSettingByYAML
// 以內建預設為底套用 YAML 設定，未知欄位直接報錯，初始化後回傳。
func GetGameSettingByYAML(data []byte) (*GameSetting, error) {
	gs := defaults()
	if err := decodeYAML(data, gs); err != nil {
		return nil, err
	}
	if err := gs.init(); err != nil {
		return nil, errs.Wrap(err, "game setting initialized err")
	}
	return gs, nil
}

// GetGameSettingByJSON
// 同 YAML，時間欄位以奈秒整數表示
func GetGameSettingByJSON(data []byte) (*GameSetting, error) {
	gs := defaults()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(gs); err != nil {
		return nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "can not unmarshal json byte")
	}
	if err := gs.init(); err != nil {
		return nil, errs.Wrap(err, "game setting initialized err")
	}
	return gs, nil
}

// Load 依副檔名讀取設定檔；空路徑回傳內建設定
func Load(path string) (*GameSetting, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "read setting "+path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return GetGameSettingByJSON(data)
	}
	return GetGameSettingByYAML(data)
}

// decodeYAML 嚴格解碼：多寫/拼錯欄位就報錯，空文件視為不覆蓋
func decodeYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return errs.WrapCode(err, errs.Fatal, errs.CodeConfig, "spec : decode yaml failed")
	}
	return nil
}

// YAML 輸出目前設定
func (gs *GameSetting) YAML() ([]byte, error) {
	bs, err := yaml.Marshal(gs)
	if err != nil {
		return nil, errs.Wrap(err, "spec : marshal failed")
	}
	return bs, nil
}
