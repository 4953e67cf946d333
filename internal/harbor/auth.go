package harbor

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
)

// APIKeyHeader carries the Harbor API key on authenticated REST calls.
const APIKeyHeader = "X-API-KEY"

// Credential is the immutable secret material supplied at startup.
type Credential struct {
	APIKey        string
	FromAddresses map[string]string
}

// Authenticator attaches credentials to outbound requests.
type Authenticator struct {
	credential Credential
}

// NewAuthenticator copies the credential so later changes by the caller are not observed.
func NewAuthenticator(credential Credential) *Authenticator {
	addresses := make(map[string]string, len(credential.FromAddresses))
	for chain, address := range credential.FromAddresses {
		addresses[chain] = address
	}

	return &Authenticator{
		credential: Credential{
			APIKey:        credential.APIKey,
			FromAddresses: addresses,
		},
	}
}

// Validate reports an AuthConfigError when the credential cannot sign requests.
func (a *Authenticator) Validate() error {
	if a.credential.APIKey == "" {
		return errors.New(errors.ErrCodeAuthConfig, "harbor api key is not configured")
	}

	if eth := a.credential.FromAddresses["ETH"]; eth != "" && !common.IsHexAddress(eth) {
		return errors.Newf(errors.ErrCodeAuthConfig, "ETH from address %q is not a valid hex address", eth)
	}

	return nil
}

// Sign returns a copy of req carrying the API key header. The input is not modified.
func (a *Authenticator) Sign(req *http.Request) *http.Request {
	signed := req.Clone(req.Context())
	if a.credential.APIKey != "" {
		signed.Header.Set(APIKeyHeader, a.credential.APIKey)
	}

	return signed
}

// FromAddresses returns the non-empty from addresses keyed by chain.
func (a *Authenticator) FromAddresses() map[string]string {
	out := make(map[string]string, len(a.credential.FromAddresses))
	for chain, address := range a.credential.FromAddresses {
		if address != "" {
			out[chain] = address
		}
	}

	return out
}
