package grpc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestJSONCodec_Registered(t *testing.T) {
	require.NotNil(t, encoding.GetCodec(CodecName))
}

func TestJSONCodec_PlainMessages(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&TransferRequest{From: "a", To: "b", Amount: dec("1.10")})
	require.NoError(t, err)
	require.JSONEq(t, `{"from":"a","to":"b","amount":"1.1"}`, string(data))

	var out TransferRequest
	require.NoError(t, c.Unmarshal([]byte(`{"from":"a","to":"b","amount":2.5}`), &out))
	require.True(t, out.Amount.Equal(dec("2.5")))

	var empty ListAuditRequest
	require.NoError(t, c.Unmarshal(nil, &empty))

	require.Error(t, c.Unmarshal([]byte(`{"amount":"x"}`), &out))
}

func TestJSONCodec_ProtoMessages(t *testing.T) {
	c := jsonCodec{}
	data, err := c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"SERVING"}`, string(data))

	var out healthpb.HealthCheckResponse
	require.NoError(t, c.Unmarshal([]byte(`{"status":"NOT_SERVING","extra":1}`), &out))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, out.GetStatus())
}
