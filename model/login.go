package model

// LoginRequest is the body of POST /goform/login. Both fields carry the
// hex HMAC of the configured credential, never the plain text.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RPCLoginParams is the fourth positional parameter of a ubus session login.
type RPCLoginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Timeout  int    `json:"timeout"`
}
