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
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/packetd/scannerd/client"
	"github.com/packetd/scannerd/scanner"
)

type scanCmdConfig struct {
	Separators    string
	SeparatorsSet bool
	Chunk         int
	Addr          string
	File          string
	Quote         bool
	MaxDataSize   int
}

// decodeSeparators 支持 Go 字符串转义 如 \t \n \x00 \"
//
// 引号可以直接书写也可以转义 \x 与八进制转义按单字节解析
func decodeSeparators(s string) ([]byte, error) {
	b := make([]byte, 0, len(s))
	for rest := s; len(rest) > 0; {
		switch {
		case rest[0] == '"':
			b = append(b, '"')
			rest = rest[1:]
			continue
		case strings.HasPrefix(rest, `\'`):
			b = append(b, '\'')
			rest = rest[2:]
			continue
		}

		v, multibyte, tail, err := strconv.UnquoteChar(rest, '"')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid separators %q", s)
		}
		if multibyte {
			b = utf8.AppendRune(b, v)
		} else {
			b = append(b, byte(v))
		}
		rest = tail
	}
	return b, nil
}

type readFunc func(p []byte) (scanner.Chunk, error)

// scanTokens 以 size 大小的缓冲区读取直至 KindEnd 每个完整 token 交由 emit 处理
func scanTokens(read readFunc, size int, emit func(token []byte) error) error {
	if size <= 0 {
		return scanner.ErrShortBuffer
	}

	buf := make([]byte, size)
	var token []byte
	for {
		chunk, err := read(buf)
		if err != nil {
			return err
		}

		switch chunk.Kind {
		case scanner.KindData:
			token = append(token, buf[:chunk.N]...)
		case scanner.KindBoundary:
			if err := emit(token); err != nil {
				return err
			}
			token = token[:0]
		case scanner.KindEnd:
			return nil
		}
	}
}

func (c *scanCmdConfig) printer(w io.Writer) func([]byte) error {
	return func(token []byte) error {
		var err error
		if c.Quote {
			_, err = fmt.Fprintf(w, "%q\n", token)
		} else {
			_, err = fmt.Fprintf(w, "%s\n", token)
		}
		return err
	}
}

func (c *scanCmdConfig) separators() ([]byte, bool, error) {
	if !c.SeparatorsSet {
		return nil, false, nil
	}
	seps, err := decodeSeparators(c.Separators)
	return seps, true, err
}

// runLocal 在进程内创建会话完成扫描
func (c *scanCmdConfig) runLocal(r io.Reader, w io.Writer) error {
	seps, ok, err := c.separators()
	if err != nil {
		return err
	}

	mgr := scanner.NewManager(scanner.Config{MaxSessions: 1, MaxDataSize: c.MaxDataSize})
	sess, err := mgr.Open()
	if err != nil {
		return err
	}
	defer mgr.Close(sess.ID())

	if ok {
		if err := sess.Control(scanner.CommandArmSeparators); err != nil {
			return err
		}
		if _, err := sess.Write(seps); err != nil {
			return err
		}
	}

	if _, err := sess.ReadFrom(r); err != nil {
		return err
	}
	return scanTokens(sess.Read, c.Chunk, c.printer(w))
}

// runRemote 通过 scannerd 服务完成扫描
func (c *scanCmdConfig) runRemote(ctx context.Context, r io.Reader, w io.Writer) error {
	seps, ok, err := c.separators()
	if err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(c.MaxDataSize)+1))
	if err != nil {
		return errors.Wrapf(scanner.ErrCopy, "read input: %v", err)
	}
	if len(data) > c.MaxDataSize {
		return errors.Wrapf(scanner.ErrAllocation, "input exceeds %d bytes", c.MaxDataSize)
	}

	cli := client.New(c.Addr, nil)
	id, err := cli.Open(ctx)
	if err != nil {
		return err
	}
	defer cli.Close(ctx, id)

	if ok {
		if err := cli.Control(ctx, id, scanner.CommandArmSeparators); err != nil {
			return err
		}
		if _, err := cli.Write(ctx, id, seps); err != nil {
			return err
		}
	}

	if _, err := cli.Write(ctx, id, data); err != nil {
		return err
	}
	return scanTokens(func(p []byte) (scanner.Chunk, error) {
		return cli.Read(ctx, id, p)
	}, c.Chunk, c.printer(w))
}

func (c *scanCmdConfig) run(ctx context.Context, w io.Writer) error {
	var r io.Reader = os.Stdin
	if c.File != "" && c.File != "-" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	if c.Addr != "" {
		return c.runRemote(ctx, r, w)
	}
	return c.runLocal(r, w)
}

var scanConfig scanCmdConfig

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Split a file or stdin into tokens",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			scanConfig.File = args[0]
		}
		scanConfig.SeparatorsSet = cmd.Flags().Changed("separators")

		if err := scanConfig.run(cmd.Context(), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "failed to scan: %v\n", err)
			os.Exit(1)
		}
	},
	Example: "# scannerd scan --separators ',\\n' data.csv\n" +
		"# cat data.txt | scannerd scan --addr 127.0.0.1:9091 --chunk 16",
}

func init() {
	scanCmd.Flags().StringVar(&scanConfig.Separators, "separators", "", "Separator bytes, Go escapes supported, defaults to space, tab and newline")
	scanCmd.Flags().IntVar(&scanConfig.Chunk, "chunk", 4096, "Maximum bytes per read")
	scanCmd.Flags().StringVar(&scanConfig.Addr, "addr", "", "Remote scannerd address, scan in process when empty")
	scanCmd.Flags().BoolVar(&scanConfig.Quote, "quote", false, "Print tokens as quoted Go strings")
	scanCmd.Flags().IntVar(&scanConfig.MaxDataSize, "max-data-size", 64<<20, "Maximum bytes of input")
	rootCmd.AddCommand(scanCmd)
}
