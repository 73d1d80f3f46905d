package model

import "encoding/json"

// NullSession is the ubus session id used before login.
const NullSession = "00000000000000000000000000000000"

type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// RPCResponse is the JSON-RPC 2.0 envelope returned by /jdcapi. A ubus
// call answers with result [code] or [code, object]; code 0 is success.
type RPCResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      int64             `json:"id"`
	Result  []json.RawMessage `json:"result"`
	Error   *RPCError         `json:"error"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type RPCSession struct {
	Token   string `json:"ubus_rpc_session"`
	Timeout int    `json:"timeout"`
	Expires int    `json:"expires"`
}
