package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Memory is an in-process Store used by tests and local development. Each
// wallet has its own row lock, held from Lock until the transaction ends, and
// writes are buffered and applied only on commit, so it exhibits the same
// blocking and rollback behaviour as the Postgres store.
type Memory struct {
	mu       sync.Mutex
	wallets  map[string]wallet.Wallet
	byOwner  map[string]string
	entries  []ledger.Entry
	entryIdx map[string]int
	locks    map[string]chan struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		wallets:  make(map[string]wallet.Wallet),
		byOwner:  make(map[string]string),
		entryIdx: make(map[string]int),
		locks:    make(map[string]chan struct{}),
	}
}

func (m *Memory) Wallets() wallet.Repository { return memoryWallets{m} }
func (m *Memory) Ledger() ledger.Repository  { return memoryLedger{m} }
func (m *Memory) Ping(context.Context) error { return nil }

// InTx runs fn against a buffered transaction.
func (m *Memory) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{
		m:      m,
		locked: make(map[string]wallet.Wallet),
		dirty:  make(map[string]bool),
	}
	defer tx.release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.commit(ctx)
}

func (m *Memory) rowLock(id string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		m.locks[id] = l
	}
	return l
}

func ownerKey(ownerID, currency string) string {
	return ownerID + "|" + currency
}

// checkUnique enforces the ledger's unique keys for pending against committed
// entries and against each other. Caller holds m.mu.
func (m *Memory) checkUnique(pending []ledger.Entry) error {
	all := make([]ledger.Entry, 0, len(m.entries)+len(pending))
	all = append(all, m.entries...)
	for _, e := range pending {
		for _, prior := range all {
			if prior.ID == e.ID {
				return fmt.Errorf("%w: entry id %s", ErrUniqueViolation, e.ID)
			}
			if e.Type == ledger.TypeDeposit && prior.Type == ledger.TypeDeposit &&
				e.ExternalReference != "" && prior.ExternalReference == e.ExternalReference {
				return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateExternalReference)
			}
			if e.IdempotencyKey != "" && prior.WalletID == e.WalletID && prior.IdempotencyKey == e.IdempotencyKey {
				return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateIdempotencyKey)
			}
			if e.ReversesEntryID != "" && prior.WalletID == e.WalletID && prior.ReversesEntryID == e.ReversesEntryID {
				return fmt.Errorf("%w: %w", ErrUniqueViolation, ledger.ErrDuplicateReversal)
			}
		}
		all = append(all, e)
	}
	return nil
}

type memoryTx struct {
	m       *Memory
	locked  map[string]wallet.Wallet
	dirty   map[string]bool
	held    []chan struct{}
	pending []ledger.Entry
}

func (tx *memoryTx) Wallets() wallet.TxRepository { return memoryTxWallets{tx} }
func (tx *memoryTx) Ledger() ledger.TxRepository  { return memoryTxLedger{tx} }

func (tx *memoryTx) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := tx.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUnique(tx.pending); err != nil {
		return err
	}
	for id := range tx.dirty {
		m.wallets[id] = tx.locked[id]
	}
	for _, e := range tx.pending {
		m.entryIdx[e.ID] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return nil
}

func (tx *memoryTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i]
	}
	tx.held = nil
}

type memoryTxWallets struct{ tx *memoryTx }

func (r memoryTxWallets) Lock(ctx context.Context, id string) (wallet.Wallet, error) {
	tx := r.tx
	if w, ok := tx.locked[id]; ok {
		return w, nil
	}
	tx.m.mu.Lock()
	_, exists := tx.m.wallets[id]
	tx.m.mu.Unlock()
	if !exists {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}

	l := tx.m.rowLock(id)
	select {
	case l <- struct{}{}:
	case <-ctx.Done():
		return wallet.Wallet{}, ctx.Err()
	}
	tx.held = append(tx.held, l)

	tx.m.mu.Lock()
	w := tx.m.wallets[id]
	tx.m.mu.Unlock()
	tx.locked[id] = w
	return w, nil
}

func (r memoryTxWallets) Save(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	tx := r.tx
	cur, ok := tx.locked[w.ID]
	if !ok {
		return wallet.Wallet{}, wallet.ErrNotLocked
	}
	if w.Balance < 0 {
		return wallet.Wallet{}, wallet.ErrInsufficientFunds
	}
	cur.Balance = w.Balance
	cur.Version++
	cur.UpdatedAt = time.Now().UTC()
	tx.locked[w.ID] = cur
	tx.dirty[w.ID] = true
	return cur, nil
}

type memoryTxLedger struct{ tx *memoryTx }

func (r memoryTxLedger) Append(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	tx := r.tx
	if !e.Type.Valid() {
		return ledger.Entry{}, fmt.Errorf("invalid entry type %q", e.Type)
	}
	if _, ok := tx.locked[e.WalletID]; !ok {
		return ledger.Entry{}, wallet.ErrNotLocked
	}
	if e.ID == "" {
		e.ID = ledger.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	tx.pending = append(tx.pending, e)
	return e, nil
}

func (r memoryTxLedger) Get(_ context.Context, id string) (ledger.Entry, error) {
	for _, e := range r.tx.pending {
		if e.ID == id {
			return e, nil
		}
	}
	return memoryLedger{r.tx.m}.Get(context.Background(), id)
}

func (r memoryTxLedger) ByIdempotencyKey(_ context.Context, walletID, key string) (ledger.Entry, error) {
	match := func(e ledger.Entry) bool { return e.WalletID == walletID && e.IdempotencyKey == key }
	for _, e := range r.tx.pending {
		if match(e) {
			return e, nil
		}
	}
	return r.tx.m.findCommitted(match)
}

func (r memoryTxLedger) RefundsOf(_ context.Context, entryID string) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range r.tx.pending {
		if e.ReversesEntryID == entryID {
			out = append(out, e)
		}
	}
	m := r.tx.m
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ReversesEntryID == entryID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memoryTxLedger) DepositByReference(_ context.Context, ref string) (ledger.Entry, error) {
	match := func(e ledger.Entry) bool { return e.Type == ledger.TypeDeposit && e.ExternalReference == ref }
	for _, e := range r.tx.pending {
		if match(e) {
			return e, nil
		}
	}
	return r.tx.m.findCommitted(match)
}

func (m *Memory) findCommitted(match func(ledger.Entry) bool) (ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if match(e) {
			return e, nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

type memoryWallets struct{ m *Memory }

func (r memoryWallets) Ensure(_ context.Context, ownerID, currency string) (wallet.Wallet, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byOwner[ownerKey(ownerID, currency)]; ok {
		return m.wallets[id], nil
	}
	now := time.Now().UTC()
	w := wallet.Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.wallets[w.ID] = w
	m.byOwner[ownerKey(ownerID, currency)] = w.ID
	return w, nil
}

func (r memoryWallets) Find(_ context.Context, ownerID, currency string) (wallet.Wallet, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byOwner[ownerKey(ownerID, currency)]
	if !ok {
		return wallet.Wallet{}, wallet.ErrWalletNotFound
	}
	return m.wallets[id], nil
}

func (r memoryWallets) ListByOwner(_ context.Context, ownerID string) ([]wallet.Wallet, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []wallet.Wallet{}
	for _, w := range m.wallets {
		if w.OwnerID == ownerID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

type memoryLedger struct{ m *Memory }

func (r memoryLedger) Get(_ context.Context, id string) (ledger.Entry, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.entryIdx[id]
	if !ok {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return m.entries[idx], nil
}

func (r memoryLedger) ListForWallet(_ context.Context, walletID string, page ledger.Page) ([]ledger.Entry, error) {
	page = page.Normalize()
	m := r.m
	m.mu.Lock()
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.WalletID != walletID {
			continue
		}
		if page.Before != "" && e.ID >= page.Before {
			continue
		}
		if !page.Matches(e.Type) {
			continue
		}
		out = append(out, e)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	if out == nil {
		out = []ledger.Entry{}
	}
	return out, nil
}

func (r memoryLedger) SumForWallet(_ context.Context, walletID string) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.WalletID == walletID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (r memoryLedger) DepositByReference(_ context.Context, ref string) (ledger.Entry, error) {
	return r.m.findCommitted(func(e ledger.Entry) bool {
		return e.Type == ledger.TypeDeposit && e.ExternalReference == ref
	})
}
