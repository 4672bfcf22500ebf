// Package engine executes requests against the persisted pet, quest and battle
// state. Requests run one at a time, each inside a single store transaction;
// ledger and registry mutations leave as instructions on the response.
package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/metrics"
	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/state"
	"petquest.ai/internal/sim/tuning"
)

type Options struct {
	Store   kv.Store
	Gateway *gateway.Gateway
	Logger  *logrus.Logger
	Metrics *metrics.Collector // optional

	// UnknownInput is tuning.UnknownFallback or tuning.UnknownReject.
	UnknownInput string
}

type Engine struct {
	mu sync.Mutex

	store   kv.Store
	gw      *gateway.Gateway
	log     *logrus.Logger
	metrics *metrics.Collector
	strict  bool

	handlers map[string]handler
}

type handler func(ctx context.Context, c *call) error

// call is the per-request working set.
type call struct {
	req    protocol.Request
	now    time.Time
	caller string // canonical
	st     *state.State

	attrs        map[string]string
	instructions []protocol.Instruction
	data         any
}

func (c *call) emit(in protocol.Instruction) { c.instructions = append(c.instructions, in) }

func (c *call) petCred() gateway.Credential {
	return gateway.Credential{Address: c.req.Caller, Permit: c.req.PetPermit}
}

func (c *call) lootCred() gateway.Credential {
	return gateway.Credential{Address: c.req.Caller, Permit: c.req.LootPermit}
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("engine: gateway is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		store:   opts.Store,
		gw:      opts.Gateway,
		log:     log,
		metrics: opts.Metrics,
		strict:  opts.UnknownInput == tuning.UnknownReject,
	}
	e.handlers = map[string]handler{
		protocol.TypeMintPet:       e.mintPet,
		protocol.TypeReleasePet:    e.releasePet,
		protocol.TypeUpgradeStat:   e.upgradeStat,
		protocol.TypeStartQuest:    e.startQuest,
		protocol.TypeClaimQuest:    e.claimQuest,
		protocol.TypeProposeBattle: e.proposeBattle,
		protocol.TypeAcceptBattle:  e.acceptBattle,
		protocol.TypeDeclineBattle: e.declineBattle,
		protocol.TypeCancelBattle:  e.cancelBattle,
		protocol.TypeClaimBattle:   e.claimBattle,

		protocol.TypeAllPets:        e.allPets,
		protocol.TypeAllBalances:    e.allBalances,
		protocol.TypeMyPets:         e.myPets,
		protocol.TypeMyBalance:      e.myBalance,
		protocol.TypeMyQuests:       e.myQuests,
		protocol.TypeMyQuestHistory: e.myQuestHistory,
		protocol.TypeMyBattles:      e.myBattles,
	}
	return e, nil
}

// Instantiate stores cfg unless a config already exists. It reports whether cfg
// was written.
func (e *Engine) Instantiate(ctx context.Context, cfg state.Config) (bool, error) {
	if cfg.MaxStats < pet.MinMaxStat {
		return false, protocol.BadRequest("max_stats must be at least %d", pet.MinMaxStat)
	}
	cfg.Admin = gateway.Canonical(cfg.Admin)

	e.mu.Lock()
	defer e.mu.Unlock()

	created := false
	err := e.store.Update(ctx, func(tx kv.Tx) error {
		st := state.New(tx)
		ok, err := st.HasConfig()
		if err != nil || ok {
			return err
		}
		created = true
		return st.PutConfig(cfg)
	})
	if err != nil {
		return false, protocol.Internal(err, "store config")
	}
	if created {
		e.log.WithField("max_stats", cfg.MaxStats).Info("config stored")
	} else {
		e.log.Info("config already stored; keeping it")
	}
	return created, nil
}

// Execute runs req and returns its response. Any error rolls back every write
// the request made and drops its instructions.
func (e *Engine) Execute(ctx context.Context, req protocol.Request) protocol.Response {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	resp := protocol.Response{Type: req.Type, ProtocolVersion: protocol.Version, ID: req.ID}

	c, err := e.run(ctx, req)
	if err != nil {
		resp.Code = protocol.CodeOf(err)
		resp.Message = protocol.MessageOf(err)
	} else {
		resp.OK = true
		resp.Attributes = c.attrs
		resp.Instructions = c.instructions
		resp.Data = c.data
	}

	e.logResult(req, resp, err)
	if e.metrics != nil {
		e.metrics.RecordRequest(req.Type, resp.Code, time.Since(start))
		e.metrics.RecordInstructions(resp.Instructions)
	}
	return resp
}

func (e *Engine) run(ctx context.Context, req protocol.Request) (*call, error) {
	h, ok := e.handlers[req.Type]
	if !ok {
		return nil, protocol.BadRequest("unknown request type %q", req.Type)
	}
	if req.ProtocolVersion != "" && req.ProtocolVersion != protocol.Version {
		return nil, protocol.BadRequest("unsupported protocol_version %q", req.ProtocolVersion)
	}
	if req.Now < 0 {
		return nil, protocol.BadRequest("now must not be negative")
	}
	c := &call{
		req:    req,
		now:    time.Unix(req.Now, 0).UTC(),
		caller: gateway.Canonical(req.Caller),
		attrs:  map[string]string{},
	}
	if c.caller == "" {
		return nil, protocol.BadRequest("caller is required")
	}

	body := func(tx kv.Tx) error {
		c.st = state.New(tx)
		return h(ctx, c)
	}
	var err error
	if protocol.IsQuery(req.Type) {
		err = e.store.View(ctx, body)
	} else {
		err = e.store.Update(ctx, body)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) logResult(req protocol.Request, resp protocol.Response, err error) {
	fields := logrus.Fields{
		"request_id": req.ID,
		"type":       req.Type,
		"caller":     req.Caller,
	}
	if req.PetID != "" {
		fields["pet_id"] = req.PetID
	}
	if req.BattleID != nil {
		fields["battle_id"] = strconv.FormatUint(*req.BattleID, 10)
	}
	if req.QuestType != "" {
		fields["quest_type"] = req.QuestType
	}
	if err != nil {
		fields["code"] = resp.Code
		entry := e.log.WithFields(fields).WithError(err)
		if resp.Code == protocol.ErrInternal || resp.Code == protocol.ErrUpstream {
			entry.Error("request failed")
			return
		}
		entry.Warn("request rejected")
		return
	}
	fields["instructions"] = len(resp.Instructions)
	if protocol.IsQuery(req.Type) {
		e.log.WithFields(fields).Debug("query served")
		return
	}
	e.log.WithFields(fields).Info("request executed")
}
