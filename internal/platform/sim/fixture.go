// Package sim 模拟标签平台：从 YAML 夹具构造标签，并模拟前台分发
package sim

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/nfc-reader/internal/ndef"
)

// FixtureFile 夹具文件结构
type FixtureFile struct {
	Tags []Fixture `yaml:"tags"`
}

// Fixture 单个模拟标签
type Fixture struct {
	Name string `yaml:"name"`
	// ID 十六进制，允许空格与冒号分隔
	ID string `yaml:"id"`
	// NDEF 是否暴露 NDEF 技术，缺省为 true
	NDEF *bool `yaml:"ndef"`
	// Memory Type 2 标签内存转储（十六进制），优先于 Records
	Memory      string          `yaml:"memory"`
	Records     []RecordFixture `yaml:"records"`
	FailConnect bool            `yaml:"failConnect"`
}

// RecordFixture 记录夹具：text/uri 简写，或 tnf+type+payload 原始形式
type RecordFixture struct {
	Text    string `yaml:"text"`
	Lang    string `yaml:"lang"`
	UTF16   bool   `yaml:"utf16"`
	URI     string `yaml:"uri"`
	TNF     *int   `yaml:"tnf"`
	Type    string `yaml:"type"`
	Payload string `yaml:"payload"`
}

// LoadFixtures 读取夹具文件
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures 解析夹具 YAML
func ParseFixtures(data []byte) ([]Fixture, error) {
	var f FixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Tags))
	for i, t := range f.Tags {
		if t.Name == "" {
			return nil, fmt.Errorf("fixture %d: name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("fixture %q: duplicate name", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return f.Tags, nil
}

// Tag 由夹具构造标签
func (f Fixture) Tag() (*Tag, error) {
	id, err := decodeHex(f.ID)
	if err != nil {
		return nil, fmt.Errorf("fixture %q id: %w", f.Name, err)
	}
	if len(id) == 0 {
		return nil, fmt.Errorf("fixture %q: id is required", f.Name)
	}

	t := &Tag{name: f.Name, id: id, ndef: f.NDEF == nil || *f.NDEF, failConnect: f.FailConnect}
	if f.Memory != "" {
		if t.memory, err = decodeHex(f.Memory); err != nil {
			return nil, fmt.Errorf("fixture %q memory: %w", f.Name, err)
		}
		return t, nil
	}

	if len(f.Records) > 0 {
		msg := &ndef.Message{}
		for i, r := range f.Records {
			rec, err := r.record()
			if err != nil {
				return nil, fmt.Errorf("fixture %q record %d: %w", f.Name, i, err)
			}
			msg.Records = append(msg.Records, rec)
		}
		if t.message, err = msg.Marshal(); err != nil {
			return nil, fmt.Errorf("fixture %q: %w", f.Name, err)
		}
	}
	return t, nil
}

func (r RecordFixture) record() (ndef.Record, error) {
	switch {
	case r.TNF != nil:
		payload, err := decodeHex(r.Payload)
		if err != nil {
			return ndef.Record{}, err
		}
		return ndef.Record{TNF: byte(*r.TNF), Type: []byte(r.Type), Payload: payload}, nil
	case r.URI != "":
		// 前缀码 0x00：不缩写
		return ndef.Record{TNF: ndef.TNFWellKnown, Type: []byte("U"), Payload: append([]byte{0x00}, r.URI...)}, nil
	default:
		lang := r.Lang
		if lang == "" {
			lang = "en"
		}
		return ndef.Record{TNF: ndef.TNFWellKnown, Type: ndef.RTDText, Payload: ndef.EncodeText(lang, r.Text, r.UTF16)}, nil
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	return hex.DecodeString(s)
}
