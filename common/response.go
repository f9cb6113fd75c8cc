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

package common

// OpenResponse 创建会话的响应
type OpenResponse struct {
	ID string `json:"id"`
}

// CountResponse 写入请求的响应 Count 为实际处理的字节数
type CountResponse struct {
	Count int64 `json:"count"`
}

// TokensResponse 批量读取 token 的响应 token 以 base64 编码
type TokensResponse struct {
	Tokens [][]byte `json:"tokens"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
