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

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/controller"
	"github.com/packetd/scannerd/internal/sigs"
	"github.com/packetd/scannerd/logger"
)

type serveCmdConfig struct {
	ConfigPath  string
	Address     string
	MaxSessions int
	MaxDataSize int
	Pprof       bool
}

// Yaml 未指定配置文件时根据命令行参数生成配置
func (c *serveCmdConfig) Yaml() []byte {
	text := `
logger:
  stdout: true

server:
  enabled: true
  address: {{ .Address }}
  pprof: {{ .Pprof }}

scanner:
  maxSessions: {{ .MaxSessions }}
  maxDataSize: {{ .MaxDataSize }}

metricsStorage:
  enabled: true
`
	tpl, err := template.New("Config").Parse(text)
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, c); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (c *serveCmdConfig) Load() (*confengine.Config, error) {
	if c.ConfigPath == "" {
		return confengine.LoadContent(c.Yaml())
	}
	return confengine.LoadConfigPath(c.ConfigPath)
}

var serveConfig serveCmdConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scannerd as a session scanning service",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := serveConfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		ctr, err := controller.New(cfg, common.GetBuildInfo())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create controller: %v\n", err)
			os.Exit(1)
		}
		if err := ctr.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
			os.Exit(1)
		}

		events, stop := sigs.Notify()
		defer stop()

		for e := range events {
			logger.Infof("received %s signal", e)
			if e == sigs.EventTerminate {
				if err := ctr.Stop(); err != nil {
					logger.Errorf("failed to stop controller: %v", err)
				}
				return
			}

			cfg, err := serveConfig.Load()
			if err != nil {
				logger.Errorf("failed to reload config: %v", err)
				continue
			}
			if err := ctr.Reload(cfg); err != nil {
				logger.Errorf("failed to reload controller: %v", err)
				continue
			}
			logger.Infof("config reloaded from %q", cfg.Path())
		}
	},
	Example: "# scannerd serve --config scannerd.yaml",
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.ConfigPath, "config", "", "Configuration file path, flags below are ignored when set")
	serveCmd.Flags().StringVar(&serveConfig.Address, "address", common.DefaultAddress, "Server listening address")
	serveCmd.Flags().IntVar(&serveConfig.MaxSessions, "max-sessions", 0, "Maximum number of sessions, 0 means unlimited")
	serveCmd.Flags().IntVar(&serveConfig.MaxDataSize, "max-data-size", 64<<20, "Maximum bytes of a single write")
	serveCmd.Flags().BoolVar(&serveConfig.Pprof, "pprof", false, "Enable pprof routes")
	rootCmd.AddCommand(serveCmd)
}
