package ipc

import "encoding/json"

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternal       = -32603

	codeNoDocument     = -32001
	codePageOutOfRange = -32002
	codeUnknownSession = -32003
)

type openParams struct {
	Session string `json:"session,omitempty"`
	Root    string `json:"root"`
	Main    string `json:"main,omitempty"`
}

type openResult struct {
	Session string `json:"session"`
}

type compileParams struct {
	Session   string `json:"session,omitempty"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	Main      string `json:"main,omitempty"`
	RequestID uint64 `json:"requestId,omitempty"`
}

type compileResult struct {
	RequestID uint64 `json:"requestId"`
}

type renderParams struct {
	Session string  `json:"session,omitempty"`
	Page    int     `json:"page"`
	Scale   float64 `json:"scale"`
	Nonce   uint64  `json:"nonce"`
}

type sessionParams struct {
	Session string `json:"session"`
}
