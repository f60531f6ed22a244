// Package lifecycle drives deposit/mint and burn operations through their
// states. A step advances only on a confirmed remote response and is never
// retried automatically.
package lifecycle

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"gowicpbridge/config"
	"gowicpbridge/errs"
	"gowicpbridge/events"
	"gowicpbridge/logger"
	"gowicpbridge/principal"
	"gowicpbridge/reconciler"
	"gowicpbridge/suitx"
	"gowicpbridge/types"
)

// Ledger is the bridge canister contract, scoped to one caller.
type Ledger interface {
	BridgeDeposit(ctx context.Context, amount uint64, recipient string) (*types.DepositReceipt, error)
	SignTransactionHash(ctx context.Context, digest [32]byte) (*types.Signature, error)
	RecordSuiMint(ctx context.Context, report types.MintReport) error
	GetConfig(ctx context.Context) (*types.BridgeConfig, error)
	GetMySuiMints(ctx context.Context) ([]types.MintedCoin, error)
	GetMyDeposits(ctx context.Context) ([]types.BridgeDeposit, error)
	MarkDepositReleased(ctx context.Context, depositID uint64, burnDigest string) (bool, error)
}

// LedgerConnector returns the ledger as seen by principal.
type LedgerConnector func(principal string) Ledger

// Chain is the Sui side: object freshness and execution.
type Chain interface {
	ResolveGas(ctx context.Context, id string) (types.GasObjectRef, error)
	ResolveObject(ctx context.Context, id string, mutable bool) (suitx.ObjectArg, error)
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
	ExecuteTransactionBlock(ctx context.Context, txB64, sigB64 string) (*types.Execution, error)
}

// Store persists operation records and hands out burn nonces.
type Store interface {
	UpsertBridgeOperation(op *types.BridgeOperation) error
	ChangeBridgeOperationStatus(op *types.BridgeOperation, prevStatus string) error
	NextBurnNonce(ctx context.Context, nowMillis uint64) (uint64, error)
}

// Settings are the Sui call targets, fixed for the process lifetime.
type Settings struct {
	PackageID     string `json:"packageId"`
	Module        string `json:"module"`
	TreasuryCapID string `json:"treasuryCapId"`
	GasBudget     uint64 `json:"gasBudget"`
	TokenType     string `json:"tokenType"`
}

func SettingsFrom(cfg *config.Configuration) Settings {
	return Settings{
		PackageID:     cfg.Sui.PackageID,
		Module:        cfg.Sui.Module,
		TreasuryCapID: cfg.Sui.TreasuryCapID,
		GasBudget:     cfg.Sui.GasBudget,
		TokenType:     cfg.Sui.TokenType,
	}
}

type Deps struct {
	Connect    LedgerConnector
	Chain      Chain
	Store      Store
	Bus        *events.Bus
	Reconciler *reconciler.Reconciler
}

// Identity is the established caller and the bridge config snapshot taken
// when it was established.
type Identity struct {
	Principal     string
	Raw           []byte
	Ledger        Ledger
	Config        types.BridgeConfig
	EstablishedAt time.Time
}

// Session holds everything flows share. Flows cannot progress before
// EstablishIdentity succeeds.
type Session struct {
	settings Settings
	deps     Deps
	now      func() time.Time

	mu       sync.RWMutex
	identity *Identity
	deposits map[string]*DepositFlow
	burns    map[string]*BurnFlow

	// best-effort bookkeeping calls still running
	background sync.WaitGroup
}

func NewSession(settings Settings, deps Deps) *Session {
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	return &Session{
		settings: settings,
		deps:     deps,
		now:      time.Now,
		deposits: make(map[string]*DepositFlow),
		burns:    make(map[string]*BurnFlow),
	}
}

func (s *Session) Settings() Settings { return s.settings }

func (s *Session) Bus() *events.Bus { return s.deps.Bus }

// EstablishIdentity binds the session to principalText, takes the bridge
// config snapshot and refreshes the reconciler for the new caller.
func (s *Session) EstablishIdentity(ctx context.Context, principalText string) (*Identity, error) {
	raw, err := principal.Decode(principalText)
	if err != nil {
		return nil, err
	}
	text := principal.Encode(raw)
	if principal.IsAnonymous(text) {
		return nil, errors.Wrap(errs.InvalidAddress, "anonymous principal cannot use the bridge")
	}

	ledger := s.deps.Connect(text)
	cfg, err := ledger.GetConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch bridge config")
	}
	s.checkConfig(ctx, cfg)

	id := &Identity{
		Principal:     text,
		Raw:           raw,
		Ledger:        ledger,
		Config:        *cfg,
		EstablishedAt: s.now(),
	}

	s.mu.Lock()
	s.identity = id
	s.deposits = make(map[string]*DepositFlow)
	s.burns = make(map[string]*BurnFlow)
	s.mu.Unlock()

	logger.InfoContext(ctx, "identity established", "principal", text, "paused", cfg.Paused)

	if rec := s.deps.Reconciler; rec != nil {
		rec.Attach(ledger)
		if err := rec.Refresh(ctx); err != nil {
			logger.WarnContext(ctx, "initial ledger refresh failed", logger.Err(err))
		}
	}
	return id, nil
}

// checkConfig reports ledger values that disagree with the local settings.
func (s *Session) checkConfig(ctx context.Context, cfg *types.BridgeConfig) {
	if cfg.PackageID != "" && !strings.EqualFold(cfg.PackageID, s.settings.PackageID) {
		logger.WarnContext(ctx, "ledger package id differs from configuration",
			"ledger", cfg.PackageID, "configured", s.settings.PackageID)
	}
	if cfg.TreasuryCapID != "" && !strings.EqualFold(cfg.TreasuryCapID, s.settings.TreasuryCapID) {
		logger.WarnContext(ctx, "ledger treasury cap differs from configuration",
			"ledger", cfg.TreasuryCapID, "configured", s.settings.TreasuryCapID)
	}
	if cfg.GasObjectID == "" || cfg.CustodialAddress == "" {
		logger.WarnContext(ctx, "bridge config incomplete, mints and burns will fail",
			"gasObjectId", cfg.GasObjectID, "custodialAddress", cfg.CustodialAddress)
	}
}

// Identity returns the established identity or errs.InvalidState.
func (s *Session) Identity() (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil, errors.Wrap(errs.InvalidState, "identity not established")
	}
	return s.identity, nil
}

// Wait blocks until background bookkeeping calls have finished.
func (s *Session) Wait() {
	s.background.Wait()
}

// detach runs f after the caller's context ends, without its cancellation.
func (s *Session) detach(ctx context.Context, f func(ctx context.Context)) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		f(context.WithoutCancel(ctx))
	}()
}

func (s *Session) persist(ctx context.Context, op *types.BridgeOperation, prevStatus string) {
	op.TsUpdated = s.now().Unix()
	var err error
	if prevStatus == "" {
		err = s.deps.Store.UpsertBridgeOperation(op)
	} else {
		err = s.deps.Store.ChangeBridgeOperationStatus(op, prevStatus)
	}
	if err != nil {
		logger.WarnContext(ctx, "cannot persist bridge operation", "id", op.ID, "status", op.Status, logger.Err(err))
	}
}
