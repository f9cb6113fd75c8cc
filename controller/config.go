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

package controller

import (
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/logger"
	"github.com/packetd/scannerd/scanner"
)

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	logger.SetOptions(opts)
	return nil
}

// loadScannerConfig 读取 scanner 配置并补齐默认值
func loadScannerConfig(conf *confengine.Config) (scanner.Config, error) {
	var cfg scanner.Config
	if err := conf.UnpackChild("scanner", &cfg); err != nil {
		return cfg, err
	}

	// 缺少 scanner 配置时不会触发 go-ucfg 的校验
	err := cfg.Validate()
	return cfg, err
}
