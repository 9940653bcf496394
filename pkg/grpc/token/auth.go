package token

import (
	"context"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/almond/pkg/ctxlog"
	"github.com/hashicorp/almond/pkg/keyring"
	almond "github.com/hashicorp/almond/pkg/token"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Policy registers the satisfiers an RPC requires. It runs once per call,
// before verification.
type Policy func(ctx context.Context, method string, v *almond.Verifier)

// Authenticator verifies the almond attached to incoming RPCs. Without Keys
// every call is rejected as Unauthenticated.
//
// The key is looked up by the almond's own generation, so almonds issued
// before a rotation keep working for as long as the keyring holds their key.
type Authenticator struct {
	L       hclog.Logger
	Keys    *keyring.Keyring
	Type    []byte
	Policy  Policy
	Metrics *metrics.Metrics
}

type tokenKey struct{}

// FromContext returns the verified almond of the current call.
func FromContext(ctx context.Context) (*almond.Token, bool) {
	t, ok := ctx.Value(tokenKey{}).(*almond.Token)
	return t, ok
}

func withToken(ctx context.Context, t *almond.Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, t)
}

// Authenticate verifies the almond in ctx for method. The returned error is
// a grpc status: Unauthenticated, or PermissionDenied when the almond is
// genuine but carries a caveat the policy does not accept.
func (a *Authenticator) Authenticate(ctx context.Context, method string) (*almond.Token, error) {
	L := a.logger(ctx)

	tok, err := a.check(ctx, method)

	outcome := almond.Classify(err)
	a.record(method, outcome)

	if err != nil {
		L.Warn("rejected almond", "method", method, "outcome", outcome.String(), "error", err)

		code := codes.Unauthenticated
		if outcome == almond.UnsatisfiedCaveat {
			code = codes.PermissionDenied
		}

		return nil, status.Errorf(code, "almond rejected: %s", outcome)
	}

	L.Trace("accepted almond", "method", method, "generation", tok.Generation(), "caveats", len(tok.Caveats()))

	return tok, nil
}

func (a *Authenticator) check(ctx context.Context, method string) (*almond.Token, error) {
	if a.Keys == nil {
		return nil, errors.Wrap(almond.ErrEmptyKey, "no keyring configured")
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.Wrap(almond.ErrInvalidToken, "no request metadata")
	}

	vals := md.Get(MetadataKey)
	if len(vals) == 0 {
		return nil, errors.Wrapf(almond.ErrInvalidToken, "missing %s metadata", MetadataKey)
	}

	tok, err := almond.ParseBase64(vals[0])
	if err != nil {
		return nil, err
	}

	v := almond.NewVerifier(tok, tok.Generation(), a.Type)

	if a.Policy != nil {
		a.Policy(ctx, method, v)
	}

	if err := a.Keys.Verify(tok, v); err != nil {
		return nil, err
	}

	return tok, nil
}

func (a *Authenticator) record(method string, outcome almond.Outcome) {
	labels := []metrics.Label{
		{
			Name:  "method",
			Value: method,
		},
		{
			Name:  "outcome",
			Value: outcome.String(),
		},
	}

	if a.Metrics != nil {
		a.Metrics.IncrCounterWithLabels([]string{"almond", "verify"}, 1, labels)
	} else {
		metrics.IncrCounterWithLabels([]string{"almond", "verify"}, 1, labels)
	}
}

func (a *Authenticator) logger(ctx context.Context) hclog.Logger {
	if a.L != nil {
		return a.L
	}

	return ctxlog.L(ctx)
}

func (a *Authenticator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		tok, err := a.Authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(a.annotate(ctx, info.FullMethod, tok), req)
	}
}

func (a *Authenticator) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		tok, err := a.Authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &authedStream{
			ServerStream: ss,
			ctx:          a.annotate(ss.Context(), info.FullMethod, tok),
		})
	}
}

// annotate stores tok and a logger tagged with the call in ctx.
func (a *Authenticator) annotate(ctx context.Context, method string, tok *almond.Token) context.Context {
	if a.L != nil {
		ctx = ctxlog.Inject(ctx, a.L)
	}

	ctx = ctxlog.With(ctx, "method", method, "generation", tok.Generation())
	return withToken(ctx, tok)
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authedStream) Context() context.Context {
	return s.ctx
}
