// Package localchain is an in-process pet registry and token ledger. It answers the
// gateway's reads and executes the instructions the engine emits.
package localchain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/protocol"
)

const DefaultPageLimit = 30

var (
	ErrPermitRejected = errors.New("permit rejected")
	ErrInsufficient   = errors.New("insufficient balance")
	ErrTokenExists    = errors.New("token already minted")
	ErrOverflow       = errors.New("balance overflow")
)

// Operation names used with FailNext and MalformNext.
const (
	OpOwnerOf     = "owner_of"
	OpTokens      = "tokens"
	OpAllTokens   = "all_tokens"
	OpBalance     = "balance"
	OpAllBalances = "all_balances"
)

// Fixture is the YAML seed state of a chain.
type Fixture struct {
	Balances map[string]uint64 `yaml:"balances"`
	Owners   map[string]string `yaml:"owners"`
	Permits  map[string]string `yaml:"permits"`
}

type Chain struct {
	mu sync.Mutex

	balances map[string]uint64
	owners   map[string]string
	permits  map[string]string

	failNext map[string]error
	malform  map[string]bool
}

func New() *Chain {
	return &Chain{
		balances: map[string]uint64{},
		owners:   map[string]string{},
		permits:  map[string]string{},
		failNext: map[string]error{},
		malform:  map[string]bool{},
	}
}

func FromFixture(f Fixture) *Chain {
	c := New()
	for a, v := range f.Balances {
		c.balances[gateway.Canonical(a)] = v
	}
	for id, o := range f.Owners {
		c.owners[id] = gateway.Canonical(o)
	}
	for a, p := range f.Permits {
		c.permits[gateway.Canonical(a)] = p
	}
	return c
}

func LoadFixture(path string) (*Chain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("chain fixture: %w", err)
	}
	return FromFixture(f), nil
}

// FailNext makes the next call of op return err.
func (c *Chain) FailNext(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext[op] = err
}

// MalformNext makes the next call of op return an uninterpretable answer.
func (c *Chain) MalformNext(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.malform[op] = true
}

func (c *Chain) SetBalance(addr string, amount uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[gateway.Canonical(addr)] = amount
}

func (c *Chain) BalanceOf(addr string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[gateway.Canonical(addr)]
}

func (c *Chain) SetOwner(tokenID, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[tokenID] = gateway.Canonical(owner)
}

// Transfer moves tokenID to a new owner.
func (c *Chain) Transfer(tokenID, to string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owners[tokenID]; !ok {
		return fmt.Errorf("token %s not found", tokenID)
	}
	c.owners[tokenID] = gateway.Canonical(to)
	return nil
}

func (c *Chain) SetPermit(addr, permit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permits[gateway.Canonical(addr)] = permit
}

// takeFault must be called with mu held.
func (c *Chain) takeFault(op string) (malformed bool, err error) {
	if e, ok := c.failNext[op]; ok {
		delete(c.failNext, op)
		return false, e
	}
	if c.malform[op] {
		delete(c.malform, op)
		return true, nil
	}
	return false, nil
}

// checkPermit must be called with mu held. Addresses without a registered permit
// accept any credential.
func (c *Chain) checkPermit(cred gateway.Credential) error {
	want, ok := c.permits[gateway.Canonical(cred.Address)]
	if !ok || want == cred.Permit {
		return nil
	}
	return ErrPermitRejected
}

func (c *Chain) OwnerOf(_ context.Context, tokenID string, cred gateway.Credential) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bad, err := c.takeFault(OpOwnerOf); err != nil {
		return "", err
	} else if bad {
		return "", nil
	}
	if err := c.checkPermit(cred); err != nil {
		return "", err
	}
	owner, ok := c.owners[tokenID]
	if !ok {
		return "", fmt.Errorf("token %s not found", tokenID)
	}
	return owner, nil
}

func (c *Chain) Tokens(_ context.Context, owner string, cred gateway.Credential) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bad, err := c.takeFault(OpTokens); err != nil {
		return nil, err
	} else if bad {
		return nil, gateway.ErrMalformed
	}
	if err := c.checkPermit(cred); err != nil {
		return nil, err
	}
	owner = gateway.Canonical(owner)
	var out []string
	for id, o := range c.owners {
		if o == owner {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *Chain) AllTokens(_ context.Context, startAfter string, limit int) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bad, err := c.takeFault(OpAllTokens); err != nil {
		return nil, err
	} else if bad {
		return nil, gateway.ErrMalformed
	}
	ids := make([]string, 0, len(c.owners))
	for id := range c.owners {
		ids = append(ids, id)
	}
	return page(ids, startAfter, limit), nil
}

func (c *Chain) Balance(_ context.Context, cred gateway.Credential) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bad, err := c.takeFault(OpBalance); err != nil {
		return 0, err
	} else if bad {
		return 0, gateway.ErrMalformed
	}
	if err := c.checkPermit(cred); err != nil {
		return 0, err
	}
	return c.balances[gateway.Canonical(cred.Address)], nil
}

func (c *Chain) AllBalances(_ context.Context, startAfter string, limit int) ([]gateway.Balance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bad, err := c.takeFault(OpAllBalances); err != nil {
		return nil, err
	} else if bad {
		return nil, gateway.ErrMalformed
	}
	addrs := make([]string, 0, len(c.balances))
	for a := range c.balances {
		addrs = append(addrs, a)
	}
	addrs = page(addrs, startAfter, limit)
	out := make([]gateway.Balance, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, gateway.Balance{Address: a, Amount: c.balances[a]})
	}
	return out, nil
}

// Apply executes instructions in order. It stops at the first failure; earlier
// instructions stay applied.
func (c *Chain) Apply(instrs []protocol.Instruction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, in := range instrs {
		if err := c.apply(in); err != nil {
			return fmt.Errorf("instruction %d (%s/%s): %w", i, in.Contract, in.Kind, err)
		}
	}
	return nil
}

func (c *Chain) apply(in protocol.Instruction) error {
	acct := gateway.Canonical(in.Account)
	switch {
	case in.Contract == protocol.ContractLedger && in.Kind == protocol.InstrMint:
		if c.balances[acct] > math.MaxUint64-in.Amount {
			return ErrOverflow
		}
		c.balances[acct] += in.Amount
	case in.Contract == protocol.ContractLedger && in.Kind == protocol.InstrBurnFrom:
		if c.balances[acct] < in.Amount {
			return ErrInsufficient
		}
		c.balances[acct] -= in.Amount
	case in.Contract == protocol.ContractRegistry && in.Kind == protocol.InstrMintNft:
		if _, ok := c.owners[in.TokenID]; ok {
			return ErrTokenExists
		}
		c.owners[in.TokenID] = acct
	default:
		return fmt.Errorf("unsupported instruction")
	}
	return nil
}

func page(keys []string, startAfter string, limit int) []string {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	sort.Strings(keys)
	i := sort.SearchStrings(keys, startAfter)
	if i < len(keys) && keys[i] == startAfter {
		i++
	}
	if startAfter == "" {
		i = 0
	}
	keys = keys[i:]
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
