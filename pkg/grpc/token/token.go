package token

import (
	"context"

	almond "github.com/hashicorp/almond/pkg/token"
	"google.golang.org/grpc/credentials"
)

// MetadataKey is the request metadata key that carries the armored almond.
const MetadataKey = "authorization"

// Token implements the credentials provider interface to send an armored
// almond with every RPC.
type Token string

// FromAlmond armors t for use as per-RPC credentials.
func FromAlmond(t *almond.Token) Token {
	return Token(t.SerializeBase64())
}

func (t Token) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{
		MetadataKey: string(t),
	}, nil
}

func (t Token) RequireTransportSecurity() bool {
	return false
}

var _ credentials.PerRPCCredentials = Token("")
