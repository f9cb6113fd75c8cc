// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package confengine

import (
	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"
	"github.com/pkg/errors"
)

// options 配置中 ${VAR} 会从环境变量中展开 路径以 . 分隔
var options = []ucfg.Option{
	ucfg.PathSep("."),
	ucfg.ResolveEnv,
	ucfg.VarExp,
}

// Config 对 ucfg.Config 的封装 按节点读取各组件配置
type Config struct {
	conf *ucfg.Config
	path string
}

func New(conf *ucfg.Config) *Config {
	return &Config{conf: conf}
}

// Path 配置文件路径 由内容加载时为空
func (c *Config) Path() string {
	return c.path
}

func (c *Config) Has(s string) bool {
	ok, err := c.conf.Has(s, -1, options...)
	return err == nil && ok
}

func (c *Config) Child(s string) (*Config, error) {
	child, err := c.conf.Child(s, -1, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "config section %q", s)
	}
	return &Config{conf: child, path: c.path}, nil
}

func (c *Config) Unpack(to any) error {
	return c.conf.Unpack(to, options...)
}

// Enabled 判断 s.enabled 是否为 true 节点不存在时视为未启用
func (c *Config) Enabled(s string) bool {
	ok, err := c.conf.Bool(s+".enabled", -1, options...)
	return err == nil && ok
}

// UnpackChild 将 s 节点解析至 to
//
// 节点不存在时 to 保持原值 调用方可预先填充默认值
func (c *Config) UnpackChild(s string, to any) error {
	if !c.Has(s) {
		return nil
	}

	child, err := c.Child(s)
	if err != nil {
		return err
	}
	if err := child.Unpack(to); err != nil {
		return errors.Wrapf(err, "unpack section %q", s)
	}
	return nil
}

func LoadConfigPath(path string) (*Config, error) {
	conf, err := yaml.NewConfigWithFile(path, options...)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return &Config{conf: conf, path: path}, nil
}

func LoadContent(b []byte) (*Config, error) {
	conf, err := yaml.NewConfig(b, options...)
	if err != nil {
		return nil, errors.Wrap(err, "load config content")
	}
	return New(conf), nil
}
