package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"", ProtocolREST, false},
		{"rest", ProtocolREST, false},
		{"HMAC", ProtocolREST, false},
		{"rpc", ProtocolRPC, false},
		{" ubus ", ProtocolRPC, false},
		{"jdcapi", ProtocolRPC, false},
		{"snmp", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_SelectsProtocol(t *testing.T) {
	rest, err := New("a", ProtocolREST, Options{Address: "192.168.1.1"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &RESTClient{}, rest)
	assert.Equal(t, ProtocolREST, rest.Protocol())
	assert.Equal(t, "a", rest.Name())

	rpc, err := New("b", ProtocolRPC, Options{Address: "http://192.168.68.1/"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &RPCClient{}, rpc)
	assert.Equal(t, ProtocolRPC, rpc.Protocol())
}

func TestNew_Errors(t *testing.T) {
	_, err := New("a", Protocol("snmp"), Options{Address: "192.168.1.1"}, nil)
	assert.Error(t, err)

	_, err = New("a", ProtocolREST, Options{Address: "http://"}, nil)
	assert.Error(t, err)
}

func TestTransport_URL(t *testing.T) {
	tr, err := newTransport("a", Options{Address: "192.168.1.1/"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://192.168.1.1/goform/login", tr.url("goform/login"))
	assert.Equal(t, "http://192.168.1.1/jdcapi", tr.url("/jdcapi"))
	assert.Equal(t, DefaultTimeout, tr.timeout)
}
