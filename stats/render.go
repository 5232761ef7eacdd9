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
	"encoding/json"
	"io"
	"strings"

	"github.com/zintix-labs/slotstrike/errs"
	"gopkg.in/yaml.v3"
)

// StatReportRender 定義輸出行為
type StatReportRender interface {
	Write(w io.Writer, r *StatReport) error
}

// EstimatorRender 評估報告輸出
type EstimatorRender interface {
	Write(w io.Writer, e *EstimatorSessions) error
}

// Format 輸出格式
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat 空字串視為 table
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errs.Warnf("unknown output format: %s", s)
}

// Renderers 依格式回傳報告與評估的輸出器
func Renderers(f Format) (StatReportRender, EstimatorRender) {
	switch f {
	case FormatJSON:
		return jsonRender[StatReport]{}, jsonRender[EstimatorSessions]{}
	case FormatYAML:
		return yamlRender[StatReport]{}, yamlRender[EstimatorSessions]{}
	}
	return reportTable{}, estimatorTable{}
}

type reportTable struct{}

func (reportTable) Write(w io.Writer, r *StatReport) error {
	_, err := io.WriteString(w, r.Table())
	return err
}

type estimatorTable struct{}

func (estimatorTable) Write(w io.Writer, e *EstimatorSessions) error {
	e.Write(w)
	return nil
}

type jsonRender[T any] struct{}

func (jsonRender[T]) Write(w io.Writer, v *T) error {
	return json.NewEncoder(w).Encode(v)
}

type yamlRender[T any] struct{}

// Write 最內層的一維陣列輸出成 flow style：[a, b, c]
func (yamlRender[T]) Write(w io.Writer, v *T) error {
	return forceReadableList(w, v)
}

func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}
	styleReadableSequences(&node)
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

// styleReadableSequences 沒有子 sequence 的 sequence 改為 flow style，外層維度保持展開
func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
	case yaml.SequenceNode:
		inner := true
		for _, c := range n.Content {
			if c != nil && c.Kind == yaml.SequenceNode {
				inner = false
			}
			styleReadableSequences(c)
		}
		if inner {
			n.Style = yaml.FlowStyle
		}
	}
}
