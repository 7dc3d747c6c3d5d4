package ledger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

func TestService_ListUnknownWalletIsEmpty(t *testing.T) {
	st := store.NewMemory()
	svc := ledger.NewService(st.Wallets(), st.Ledger())

	entries, err := svc.List(context.Background(), "nobody", "NGN", ledger.Page{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = st.Wallets().Find(context.Background(), "nobody", "NGN")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := ledger.NewService(st.Wallets(), st.Ledger())
	for _, amount := range []int64{100, 200, 300} {
		_, err := store.Seed(ctx, st, "alice", "NGN", amount)
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx, "alice", "ngn", ledger.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(300), entries[0].Delta)
	assert.Equal(t, int64(600), entries[0].BalanceAfter)
	assert.Equal(t, int64(200), entries[1].Delta)

	_, err = svc.List(ctx, "alice", "XYZ", ledger.Page{})
	assert.Error(t, err)
}

func TestService_Audit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := ledger.NewService(st.Wallets(), st.Ledger())
	_, err := store.Seed(ctx, st, "alice", "NGN", 1_500)
	require.NoError(t, err)

	report, err := svc.Audit(ctx, "alice", "NGN")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(1_500), report.Balance)
	assert.Equal(t, int64(1_500), report.LedgerSum)

	_, err = svc.Audit(ctx, "ghost", "NGN")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, ledger.DefaultPageLimit, ledger.Page{}.Normalize().Limit)
	assert.Equal(t, ledger.MaxPageLimit, ledger.Page{Limit: 10_000}.Normalize().Limit)
	assert.Equal(t, 7, ledger.Page{Limit: 7}.Normalize().Limit)
}

func TestEntryTypeRefundable(t *testing.T) {
	assert.True(t, ledger.TypeGiftSpend.Refundable())
	assert.True(t, ledger.TypeTransferOut.Refundable())
	assert.True(t, ledger.TypeBoostSpend.Refundable())
	assert.False(t, ledger.TypeDeposit.Refundable())
	assert.False(t, ledger.TypeRefund.Refundable())
	assert.False(t, ledger.EntryType("bogus").Valid())
}

func TestHandler_ListPaginates(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	for i := 0; i < 3; i++ {
		_, err := store.Seed(ctx, st, "alice", "NGN", 100)
		require.NoError(t, err)
	}
	h := ledger.NewHandler(ledger.NewService(st.Wallets(), st.Ledger()))
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "alice")
		return c.Next()
	})
	app.Get("/ledger/:currency", h.List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ledger/NGN?limit=2", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Entries []struct {
			ID           string `json:"id"`
			DeltaDisplay string `json:"delta_display"`
		} `json:"entries"`
		NextBefore string `json:"next_before"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "1.00", body.Entries[0].DeltaDisplay)
	assert.Equal(t, body.Entries[1].ID, body.NextBefore)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ledger/NGN?limit=2&before="+body.NextBefore, nil))
	require.NoError(t, err)
	var rest struct {
		Entries    []json.RawMessage `json:"entries"`
		NextBefore string            `json:"next_before"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rest))
	assert.Len(t, rest.Entries, 1)
	assert.Empty(t, rest.NextBefore)
}

// credit appends a positive entry of type typ to owner's NGN wallet.
func credit(t *testing.T, st *store.Memory, owner string, typ ledger.EntryType, actionID string, amount int64) {
	t.Helper()
	ctx := context.Background()
	w, err := st.Wallets().Ensure(ctx, owner, "NGN")
	require.NoError(t, err)
	err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		locked, err := tx.Wallets().Lock(ctx, w.ID)
		if err != nil {
			return err
		}
		saved, err := wallet.Credit(ctx, tx.Wallets(), locked, amount)
		if err != nil {
			return err
		}
		_, err = tx.Ledger().Append(ctx, ledger.Entry{
			WalletID:     saved.ID,
			OwnerID:      saved.OwnerID,
			Currency:     "NGN",
			Delta:        amount,
			Type:         typ,
			ActionID:     actionID,
			BalanceAfter: saved.Balance,
		})
		return err
	})
	require.NoError(t, err)
}

func TestService_ListFiltersByType(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, err := store.Seed(ctx, st, "bob", "NGN", 1_000)
	require.NoError(t, err)
	credit(t, st, "bob", ledger.TypeGiftReceipt, "gift_rose", 100)
	credit(t, st, "bob", ledger.TypeTransferIn, "", 50)
	credit(t, st, "bob", ledger.TypeGiftReceipt, "gift_teddy", 500)
	svc := ledger.NewService(st.Wallets(), st.Ledger())

	gifts, err := svc.List(ctx, "bob", "NGN", ledger.Page{Types: []ledger.EntryType{ledger.TypeGiftReceipt}})
	require.NoError(t, err)
	require.Len(t, gifts, 2)
	assert.Equal(t, "gift_teddy", gifts[0].ActionID)
	assert.Equal(t, "gift_rose", gifts[1].ActionID)

	first, err := svc.List(ctx, "bob", "NGN", ledger.Page{Limit: 1, Types: []ledger.EntryType{ledger.TypeGiftReceipt}})
	require.NoError(t, err)
	rest, err := svc.List(ctx, "bob", "NGN", ledger.Page{Before: first[0].ID, Types: []ledger.EntryType{ledger.TypeGiftReceipt}})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "gift_rose", rest[0].ActionID)

	_, err = svc.List(ctx, "bob", "NGN", ledger.Page{Types: []ledger.EntryType{"gift"}})
	assert.ErrorIs(t, err, ledger.ErrInvalidEntryType)
}

func TestParseTypes(t *testing.T) {
	types, err := ledger.ParseTypes(" gift_spend,GIFT_RECEIPT,, ")
	require.NoError(t, err)
	assert.Equal(t, []ledger.EntryType{ledger.TypeGiftSpend, ledger.TypeGiftReceipt}, types)

	types, err = ledger.ParseTypes("")
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = ledger.ParseTypes("gift_spend,bogus")
	assert.ErrorIs(t, err, ledger.ErrInvalidEntryType)
}

func TestHandler_ListTypeFilter(t *testing.T) {
	st := store.NewMemory()
	_, err := store.Seed(context.Background(), st, "bob", "NGN", 1_000)
	require.NoError(t, err)
	credit(t, st, "bob", ledger.TypeGiftReceipt, "gift_rose", 100)
	h := ledger.NewHandler(ledger.NewService(st.Wallets(), st.Ledger()))
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "bob")
		return c.Next()
	})
	app.Get("/ledger/:currency", h.List)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ledger/NGN?type=gift_receipt,gift_spend", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Entries []struct {
			Type     string `json:"type"`
			ActionID string `json:"action_id"`
		} `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "gift_receipt", body.Entries[0].Type)
	assert.Equal(t, "gift_rose", body.Entries[0].ActionID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ledger/NGN?type=gifts", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
