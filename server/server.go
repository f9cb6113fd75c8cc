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

package server

import (
	"context"
	"net"
	"net/http"
	"net/http/pprof"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/packetd/scannerd/common"
	"github.com/packetd/scannerd/confengine"
	"github.com/packetd/scannerd/internal/rescue"
	"github.com/packetd/scannerd/logger"
)

type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

type Server struct {
	config Config
	router *mux.Router
	server *http.Server
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断
func New(conf *confengine.Config) (*Server, error) {
	var config Config
	if err := conf.UnpackChild("server", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}
	return NewServer(config), nil
}

func NewServer(config Config) *Server {
	if config.Address == "" {
		config.Address = common.DefaultAddress
	}

	router := mux.NewRouter()
	router.Use(logRequest, rescue.Middleware)
	s := &Server{
		config: config,
		router: router,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
	router.NotFoundHandler = http.HandlerFunc(s.routeUnmatched)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.routeUnmatched)
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s
}

// routeUnmatched 路径存在但方法不匹配时返回 405 并携带 Allow 头部 否则返回 404
func (s *Server) routeUnmatched(w http.ResponseWriter, r *http.Request) {
	methods := s.allowedMethods(r.URL.Path)
	if len(methods) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func (s *Server) allowedMethods(path string) []string {
	var methods []string
	_ = s.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		expr, err := route.GetPathRegexp()
		if err != nil {
			return nil
		}
		re, err := regexp.Compile(expr)
		if err != nil || !re.MatchString(path) {
			return nil
		}
		if ms, err := route.GetMethods(); err == nil {
			methods = append(methods, ms...)
		}
		return nil
	})
	sort.Strings(methods)
	return slices.Compact(methods)
}

func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s took %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handler 返回路由 供测试或者嵌入其他 http.Server 使用
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Address() string {
	return s.config.Address
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("server listening on %s", s.config.Address)
	return s.server.Serve(l)
}

// Shutdown 停止接收新请求并等待处理中的请求结束
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterPostRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPost).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterPutRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPut).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterDeleteRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodDelete).Path(path).HandlerFunc(f)
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}
