package token

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/almond/pkg/ctxlog"
	"github.com/hashicorp/almond/pkg/keyring"
	almond "github.com/hashicorp/almond/pkg/token"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context {
	return f.ctx
}

func TestAuthenticator(t *testing.T) {
	L := hclog.New(&hclog.LoggerOptions{
		Name:  "test",
		Level: hclog.Trace,
	})

	kr := keyring.New()
	defer kr.Close()

	require.NoError(t, kr.Rotate(1, []byte("this_is_a_secret")))

	m, err := metrics.New(metrics.DefaultConfig("test"), metrics.NewInmemSink(time.Minute, time.Hour))
	require.NoError(t, err)

	auth := &Authenticator{
		L:       L,
		Keys:    kr,
		Type:    []byte("login"),
		Metrics: m,
		Policy: func(ctx context.Context, method string, v *almond.Verifier) {
			v.SatisfyExact([]byte("user"), []byte("erikj"))
			if method == "/svc/Read" {
				v.SatisfyExactFlag([]byte("readonly"))
			}
		},
	}

	issue := func(t *testing.T, typ string, caveats ...almond.Caveat) Token {
		b, err := kr.Issue([]byte(typ))
		require.NoError(t, err)

		for _, c := range caveats {
			b.Add(c)
		}

		tok, err := b.Token()
		require.NoError(t, err)

		return FromAlmond(tok)
	}

	incoming := func(t *testing.T, creds Token) context.Context {
		md, err := creds.GetRequestMetadata(context.Background())
		require.NoError(t, err)

		return metadata.NewIncomingContext(context.Background(), metadata.New(md))
	}

	unary := auth.UnaryServerInterceptor()

	call := func(ctx context.Context, method string) (*almond.Token, error) {
		var seen *almond.Token

		_, err := unary(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, req interface{}) (interface{}, error) {
			seen, _ = FromContext(ctx)
			return "ok", nil
		})

		return seen, err
	}

	t.Run("passes a valid almond to the handler", func(t *testing.T) {
		creds := issue(t, "login", almond.KV([]byte("user"), []byte("erikj")))

		tok, err := call(incoming(t, creds), "/svc/Write")
		require.NoError(t, err)
		require.NotNil(t, tok)

		assert.Equal(t, uint8(1), tok.Generation())
		assert.Equal(t, string(creds), tok.SerializeBase64())
	})

	t.Run("applies the per-method policy", func(t *testing.T) {
		creds := issue(t, "login", almond.KV([]byte("user"), []byte("erikj")), almond.Flag([]byte("readonly")))

		_, err := call(incoming(t, creds), "/svc/Read")
		require.NoError(t, err)

		_, err = call(incoming(t, creds), "/svc/Write")
		require.Error(t, err)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})

	t.Run("rejects a missing almond", func(t *testing.T) {
		_, err := call(context.Background(), "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))

		ctx := metadata.NewIncomingContext(context.Background(), metadata.MD{})
		_, err = call(ctx, "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("rejects forged and mistyped almonds", func(t *testing.T) {
		b, err := almond.New([]byte("not the secret"), 1, []byte("login"))
		require.NoError(t, err)
		forged, err := b.AddCaveat([]byte("user"), []byte("erikj")).Token()
		require.NoError(t, err)

		_, err = call(incoming(t, FromAlmond(forged)), "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))

		creds := issue(t, "access", almond.KV([]byte("user"), []byte("erikj")))
		_, err = call(incoming(t, creds), "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))

		_, err = call(incoming(t, Token("%%%")), "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("rejects generations the keyring does not hold", func(t *testing.T) {
		b, err := almond.New([]byte("this_is_a_secret"), 9, []byte("login"))
		require.NoError(t, err)
		tok, err := b.AddCaveat([]byte("user"), []byte("erikj")).Token()
		require.NoError(t, err)

		_, err = call(incoming(t, FromAlmond(tok)), "/svc/Write")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("rejects every call without a keyring", func(t *testing.T) {
		creds := issue(t, "login", almond.KV([]byte("user"), []byte("erikj")))

		auth := *auth
		auth.Keys = nil

		_, err := auth.UnaryServerInterceptor()(incoming(t, creds), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Write"},
			func(ctx context.Context, req interface{}) (interface{}, error) {
				t.Fatal("handler should not run")
				return nil, nil
			})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("authenticates streams", func(t *testing.T) {
		creds := issue(t, "login", almond.KV([]byte("user"), []byte("erikj")))

		stream := auth.StreamServerInterceptor()

		var seen *almond.Token
		err := stream(nil, &fakeStream{ctx: incoming(t, creds)}, &grpc.StreamServerInfo{FullMethod: "/svc/Watch"},
			func(srv interface{}, ss grpc.ServerStream) error {
				seen, _ = FromContext(ss.Context())
				return nil
			})
		require.NoError(t, err)
		require.NotNil(t, seen)

		err = stream(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/svc/Watch"},
			func(srv interface{}, ss grpc.ServerStream) error {
				t.Fatal("handler should not run")
				return nil
			})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("tags the handler logger with the call", func(t *testing.T) {
		var buf bytes.Buffer

		auth := *auth
		auth.L = hclog.New(&hclog.LoggerOptions{
			Name:   "test",
			Level:  hclog.Trace,
			Output: &buf,
		})

		creds := issue(t, "login", almond.KV([]byte("user"), []byte("erikj")))

		_, err := auth.UnaryServerInterceptor()(incoming(t, creds), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Write"},
			func(ctx context.Context, req interface{}) (interface{}, error) {
				ctxlog.L(ctx).Info("handling")
				return nil, nil
			})
		require.NoError(t, err)

		assert.Contains(t, buf.String(), "handling")
		assert.Contains(t, buf.String(), "method=/svc/Write")
	})
}

func TestToken(t *testing.T) {
	md, err := Token("abc").GetRequestMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"authorization": "abc"}, md)
	assert.False(t, Token("abc").RequireTransportSecurity())
}
