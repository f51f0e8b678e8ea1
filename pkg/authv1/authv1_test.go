// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authv1_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/holomush/holoauth/pkg/authv1"
	"github.com/holomush/holoauth/pkg/errutil"
)

type echoServer struct {
	authv1.UnimplementedAuthServer
	seen []string
}

func (s *echoServer) SignIn(_ context.Context, req *authv1.SignInRequest) (*authv1.SignInResponse, error) {
	s.seen = append(s.seen, req.GetUsername()+":"+req.GetPassword())
	if req.GetPassword() != "secret" {
		return &authv1.SignInResponse{StatusCode: authv1.StatusFailure}, nil
	}
	return &authv1.SignInResponse{
		StatusCode:   authv1.StatusSuccess,
		UserUUID:     "01HZX0000000000000000000AA",
		SessionToken: "tok",
	}, nil
}

func dialConn(t *testing.T, srv authv1.AuthServer, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(opts...)
	authv1.RegisterAuthServer(server, srv)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dial(t *testing.T, srv authv1.AuthServer, opts ...grpc.ServerOption) *authv1.Client {
	t.Helper()
	return authv1.NewClient(dialConn(t, srv, opts...))
}

// authDescriptor builds the auth.proto messages at runtime, the way a client
// with protoc-generated code sees them.
func authDescriptor(t *testing.T) protoreflect.FileDescriptor {
	t.Helper()
	str := func(name string, num int32) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(num),
			Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		}
	}
	statusField := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("status_code"),
		Number:   proto.Int32(1),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum(),
		TypeName: proto.String(".holoauth.auth.v1.StatusCode"),
	}

	fd, err := protodesc.NewFile(&descriptorpb.FileDescriptorProto{
		Name:    proto.String("holoauth/auth/v1/auth.proto"),
		Package: proto.String("holoauth.auth.v1"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("StatusCode"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("FAILURE"), Number: proto.Int32(0)},
				{Name: proto.String("SUCCESS"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{Name: proto.String("SignUpRequest"), Field: []*descriptorpb.FieldDescriptorProto{str("username", 1), str("password", 2)}},
			{Name: proto.String("SignInRequest"), Field: []*descriptorpb.FieldDescriptorProto{str("username", 1), str("password", 2)}},
			{Name: proto.String("SignInResponse"), Field: []*descriptorpb.FieldDescriptorProto{statusField, str("user_uuid", 2), str("session_token", 3)}},
		},
	}, nil)
	require.NoError(t, err)
	return fd
}

func dynamicMessage(fd protoreflect.FileDescriptor, name string, values map[string]protoreflect.Value) *dynamicpb.Message {
	desc := fd.Messages().ByName(protoreflect.Name(name))
	msg := dynamicpb.NewMessage(desc)
	for field, v := range values {
		msg.Set(desc.Fields().ByName(protoreflect.Name(field)), v)
	}
	return msg
}

func TestCodec_ReplacesDefaultProtoCodec(t *testing.T) {
	codec := encoding.GetCodec("proto")
	require.NotNil(t, codec)
	assert.IsType(t, authv1.Codec{}, codec)
	assert.Equal(t, authv1.CodecName, codec.Name())
}

func TestCodec_WireBytes(t *testing.T) {
	b, err := authv1.Codec{}.Marshal(&authv1.SignInResponse{
		StatusCode:   authv1.StatusSuccess,
		UserUUID:     "u",
		SessionToken: "t",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x12, 0x01, 'u', 0x1a, 0x01, 't'}, b)

	b, err = authv1.Codec{}.Marshal(&authv1.SignInResponse{StatusCode: authv1.StatusFailure})
	require.NoError(t, err)
	assert.Empty(t, b)

	b, err = authv1.Codec{}.Marshal(&authv1.SignUpRequest{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x05, 'a', 'l', 'i', 'c', 'e', 0x12, 0x02, 'p', 'w'}, b)
}

func TestCodec_InteroperatesWithProtobufRuntime(t *testing.T) {
	fd := authDescriptor(t)

	raw, err := proto.Marshal(dynamicMessage(fd, "SignUpRequest", map[string]protoreflect.Value{
		"username": protoreflect.ValueOfString("alice"),
		"password": protoreflect.ValueOfString("s3cr3t"),
	}))
	require.NoError(t, err)

	var req authv1.SignUpRequest
	require.NoError(t, authv1.Codec{}.Unmarshal(raw, &req))
	assert.Equal(t, authv1.SignUpRequest{Username: "alice", Password: "s3cr3t"}, req)

	b, err := authv1.Codec{}.Marshal(&authv1.SignInResponse{
		StatusCode:   authv1.StatusSuccess,
		UserUUID:     "01HZX0000000000000000000AA",
		SessionToken: "tok",
	})
	require.NoError(t, err)

	resp := dynamicMessage(fd, "SignInResponse", nil)
	require.NoError(t, proto.Unmarshal(b, resp))
	fields := resp.Descriptor().Fields()
	assert.Equal(t, protoreflect.EnumNumber(1), resp.Get(fields.ByName("status_code")).Enum())
	assert.Equal(t, "01HZX0000000000000000000AA", resp.Get(fields.ByName("user_uuid")).String())
	assert.Equal(t, "tok", resp.Get(fields.ByName("session_token")).String())
}

func TestCodec_Unmarshal(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "abc")

	req := authv1.SignOutRequest{SessionToken: "stale"}
	require.NoError(t, authv1.Codec{}.Unmarshal(b, &req), "unknown fields are skipped")
	assert.Equal(t, "abc", req.SessionToken)

	require.NoError(t, authv1.Codec{}.Unmarshal(nil, &req))
	assert.Empty(t, req.SessionToken, "an empty payload resets the message")
}

func TestCodec_UnmarshalErrors(t *testing.T) {
	wrongType := protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 7)
	truncated := protowire.AppendTag(nil, 1, protowire.BytesType)
	badUTF8 := protowire.AppendBytes(protowire.AppendTag(nil, 1, protowire.BytesType), []byte{0xff, 0xfe})

	tests := []struct {
		name string
		data []byte
	}{
		{"wrong wire type", wrongType},
		{"truncated length", truncated},
		{"invalid utf-8", badUTF8},
		{"bad tag", []byte{0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req authv1.ValidateSessionRequest
			err := authv1.Codec{}.Unmarshal(tt.data, &req)
			errutil.AssertErrorCode(t, err, "CODEC_UNMARSHAL_FAILED")
		})
	}
}

func TestCodec_UnsupportedType(t *testing.T) {
	_, err := authv1.Codec{}.Marshal(struct{}{})
	errutil.AssertErrorCode(t, err, "CODEC_UNSUPPORTED_TYPE")

	err = authv1.Codec{}.Unmarshal(nil, &struct{}{})
	errutil.AssertErrorCode(t, err, "CODEC_UNSUPPORTED_TYPE")
}

func TestCodec_FallsBackToProtobufRuntime(t *testing.T) {
	b, err := authv1.Codec{}.Marshal(&healthpb.HealthCheckRequest{Service: authv1.ServiceName})
	require.NoError(t, err)

	var out healthpb.HealthCheckRequest
	require.NoError(t, authv1.Codec{}.Unmarshal(b, &out))
	assert.Equal(t, authv1.ServiceName, out.GetService())
}

func TestServer_AcceptsGeneratedProtobufClient(t *testing.T) {
	fd := authDescriptor(t)
	conn := dialConn(t, &echoServer{})

	in := dynamicMessage(fd, "SignInRequest", map[string]protoreflect.Value{
		"username": protoreflect.ValueOfString("alice"),
		"password": protoreflect.ValueOfString("secret"),
	})
	out := dynamicMessage(fd, "SignInResponse", nil)
	require.NoError(t, conn.Invoke(context.Background(), authv1.SignInMethod, in, out))

	fields := out.Descriptor().Fields()
	assert.Equal(t, protoreflect.EnumNumber(authv1.StatusSuccess), out.Get(fields.ByName("status_code")).Enum())
	assert.Equal(t, "01HZX0000000000000000000AA", out.Get(fields.ByName("user_uuid")).String())
	assert.Equal(t, "tok", out.Get(fields.ByName("session_token")).String())
}

func TestStatusCode_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", authv1.StatusSuccess.String())
	assert.Equal(t, "FAILURE", authv1.StatusFailure.String())
	assert.Equal(t, "UNKNOWN", authv1.StatusCode(7).String())
}

func TestGetters_NilSafe(t *testing.T) {
	var (
		up      *authv1.SignUpRequest
		upResp  *authv1.SignUpResponse
		in      *authv1.SignInRequest
		inResp  *authv1.SignInResponse
		out     *authv1.SignOutRequest
		outResp *authv1.SignOutResponse
		val     *authv1.ValidateSessionRequest
		valResp *authv1.ValidateSessionResponse
	)
	assert.Empty(t, up.GetUsername())
	assert.Empty(t, up.GetPassword())
	assert.Equal(t, authv1.StatusFailure, upResp.GetStatusCode())
	assert.Empty(t, in.GetUsername())
	assert.Empty(t, in.GetPassword())
	assert.Equal(t, authv1.StatusFailure, inResp.GetStatusCode())
	assert.Empty(t, inResp.GetUserUUID())
	assert.Empty(t, inResp.GetSessionToken())
	assert.Empty(t, out.GetSessionToken())
	assert.Equal(t, authv1.StatusFailure, outResp.GetStatusCode())
	assert.Empty(t, val.GetSessionToken())
	assert.Equal(t, authv1.StatusFailure, valResp.GetStatusCode())
	assert.Empty(t, valResp.GetUserUUID())
}

func TestClient_RoundTrip(t *testing.T) {
	srv := &echoServer{}
	client := dial(t, srv)
	ctx := context.Background()

	resp, err := client.SignIn(ctx, &authv1.SignInRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, authv1.StatusSuccess, resp.StatusCode)
	assert.Equal(t, "tok", resp.SessionToken)

	resp, err = client.SignIn(ctx, &authv1.SignInRequest{Username: "alice", Password: "wrong"})
	require.NoError(t, err)
	assert.Equal(t, authv1.StatusFailure, resp.StatusCode)
	assert.Empty(t, resp.UserUUID)
	assert.Empty(t, resp.SessionToken)

	assert.Equal(t, []string{"alice:secret", "alice:wrong"}, srv.seen)
}

func TestClient_Unimplemented(t *testing.T) {
	client := dial(t, &echoServer{})
	ctx := context.Background()

	_, err := client.SignUp(ctx, &authv1.SignUpRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = client.SignOut(ctx, &authv1.SignOutRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
	_, err = client.ValidateSession(ctx, &authv1.ValidateSessionRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestServiceDesc_InterceptorSeesFullMethod(t *testing.T) {
	var methods []string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		methods = append(methods, info.FullMethod)
		return handler(ctx, req)
	}
	client := dial(t, &echoServer{}, grpc.UnaryInterceptor(interceptor))

	_, err := client.SignIn(context.Background(), &authv1.SignInRequest{Username: "a", Password: "secret"})
	require.NoError(t, err)
	_, _ = client.SignUp(context.Background(), &authv1.SignUpRequest{})

	assert.Equal(t, []string{authv1.SignInMethod, authv1.SignUpMethod}, methods)
	assert.Equal(t, "/holoauth.auth.v1.Auth/SignIn", authv1.SignInMethod)
}
