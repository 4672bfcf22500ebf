// Package gateway is the engine's only route to the external pet registry and
// token ledger. Reads happen synchronously through Registry and Ledger; writes are
// returned to the host as instructions.
package gateway

import (
	"context"
	"errors"
	"strings"

	"petquest.ai/internal/protocol"
)

// ErrMalformed marks an external answer that could not be interpreted.
var ErrMalformed = errors.New("malformed answer")

// Credential is a verified caller plus the opaque permit it presented.
type Credential struct {
	Address string
	Permit  string
}

type Balance struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

type Registry interface {
	OwnerOf(ctx context.Context, tokenID string, cred Credential) (string, error)
	Tokens(ctx context.Context, owner string, cred Credential) ([]string, error)
	AllTokens(ctx context.Context, startAfter string, limit int) ([]string, error)
}

type Ledger interface {
	Balance(ctx context.Context, cred Credential) (uint64, error)
	AllBalances(ctx context.Context, startAfter string, limit int) ([]Balance, error)
}

// Canonical normalizes an address for storage and comparison.
func Canonical(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

type Gateway struct {
	registry Registry
	ledger   Ledger
}

func New(r Registry, l Ledger) *Gateway {
	return &Gateway{registry: r, ledger: l}
}

// VerifyOwner returns the canonical owner of petID when it is the credential's address.
func (g *Gateway) VerifyOwner(ctx context.Context, petID string, cred Credential) (string, error) {
	owner, err := g.registry.OwnerOf(ctx, petID, cred)
	if err != nil {
		return "", protocol.Upstream(err, "owner_of %s", petID)
	}
	if strings.TrimSpace(owner) == "" {
		return "", protocol.Upstream(ErrMalformed, "owner_of %s: empty owner", petID)
	}
	owner = Canonical(owner)
	if owner != Canonical(cred.Address) {
		return "", protocol.NoPermission("%s does not own %s", cred.Address, petID)
	}
	return owner, nil
}

func (g *Gateway) VerifyBalance(ctx context.Context, cred Credential) (uint64, error) {
	amount, err := g.ledger.Balance(ctx, cred)
	if err != nil {
		return 0, protocol.Upstream(err, "balance of %s", cred.Address)
	}
	return amount, nil
}

// RequireBalance fails with E_NO_RESOURCE when the balance is below amount.
func (g *Gateway) RequireBalance(ctx context.Context, cred Credential, amount uint64) (uint64, error) {
	bal, err := g.VerifyBalance(ctx, cred)
	if err != nil {
		return 0, err
	}
	if bal < amount {
		return bal, protocol.NoResource("balance %d below %d", bal, amount)
	}
	return bal, nil
}

func (g *Gateway) Tokens(ctx context.Context, owner string, cred Credential) ([]string, error) {
	ids, err := g.registry.Tokens(ctx, owner, cred)
	if err != nil {
		return nil, protocol.Upstream(err, "tokens of %s", owner)
	}
	return ids, nil
}

func (g *Gateway) AllTokens(ctx context.Context, startAfter string, limit int) ([]string, error) {
	ids, err := g.registry.AllTokens(ctx, startAfter, limit)
	if err != nil {
		return nil, protocol.Upstream(err, "all_tokens")
	}
	return ids, nil
}

func (g *Gateway) AllBalances(ctx context.Context, startAfter string, limit int) ([]Balance, error) {
	out, err := g.ledger.AllBalances(ctx, startAfter, limit)
	if err != nil {
		return nil, protocol.Upstream(err, "all_balances")
	}
	return out, nil
}
