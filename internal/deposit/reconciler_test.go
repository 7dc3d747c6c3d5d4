package deposit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/logging"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
)

const (
	paystackSecret = "sk_test_paystack"
	stripeSecret   = "whsec_test"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func newReconciler(t *testing.T) (*Reconciler, *store.Memory, *recordingNotifier) {
	t.Helper()
	st := store.NewMemory()
	n := &recordingNotifier{}
	r := NewReconciler(st, n, logging.Discard(), Options{},
		NewPaystack(paystackSecret, "NGN"),
		NewStripe(stripeSecret),
	)
	return r, st, n
}

func paystackPayload(ref string, amount int64, user string) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"currency":"NGN","status":"success","metadata":{"user_id":%q}}}`, ref, amount, user))
}

func signPaystack(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(paystackSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signStripe(payload []byte, at time.Time) string {
	ts := fmt.Sprint(at.Unix())
	mac := hmac.New(sha256.New, []byte(stripeSecret))
	mac.Write([]byte(ts + "." + string(payload)))
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func depositEntries(t *testing.T, st *store.Memory, owner, currency string) []ledger.Entry {
	t.Helper()
	w, err := st.Wallets().Find(context.Background(), owner, currency)
	require.NoError(t, err)
	list, err := st.Ledger().ListForWallet(context.Background(), w.ID, ledger.Page{})
	require.NoError(t, err)
	return list
}

func TestHandle_PaystackRedeliveryCreditsOnce(t *testing.T) {
	r, st, n := newReconciler(t)
	ctx := context.Background()
	payload := paystackPayload("ref-1", 1000, "alice")
	sig := signPaystack(payload)

	first, err := r.Handle(ctx, "paystack", payload, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusCredited, first.Status)
	assert.Equal(t, "ref-1", first.Entry.ExternalReference)
	assert.Equal(t, ledger.TypeDeposit, first.Entry.Type)

	second, err := r.Handle(ctx, "paystack", payload, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, second.Status)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	w, err := st.Wallets().Find(ctx, "alice", "NGN")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w.Balance)

	entries := depositEntries(t, st, "alice", "NGN")
	require.Len(t, entries, 1)
	assert.Equal(t, "ref-1", entries[0].ExternalReference)
	assert.Equal(t, 1, n.count())
}

func TestHandle_ConcurrentRedelivery(t *testing.T) {
	r, st, _ := newReconciler(t)
	payload := paystackPayload("ref-storm", 700, "bob")
	sig := signPaystack(payload)

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	statuses := map[Status]int{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Handle(context.Background(), "paystack", payload, sig)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			statuses[res.Status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[StatusCredited])
	assert.Equal(t, workers-1, statuses[StatusDuplicate])
	w, err := st.Wallets().Find(context.Background(), "bob", "NGN")
	require.NoError(t, err)
	assert.Equal(t, int64(700), w.Balance)
}

func TestHandle_InvalidSignature(t *testing.T) {
	r, st, _ := newReconciler(t)
	payload := paystackPayload("ref-2", 1000, "alice")

	_, err := r.Handle(context.Background(), "paystack", payload, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = r.Handle(context.Background(), "paystack", payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = st.Wallets().Find(context.Background(), "alice", "NGN")
	assert.Error(t, err)
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	r, _, n := newReconciler(t)
	payload := []byte(`{"event":"transfer.success","data":{"reference":"x"}}`)

	res, err := r.Handle(context.Background(), "paystack", payload, signPaystack(payload))
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, res.Status)
	assert.Zero(t, n.count())
}

func TestHandle_Malformed(t *testing.T) {
	r, _, _ := newReconciler(t)
	cases := [][]byte{
		[]byte(`{not json`),
		paystackPayload("", 1000, "alice"),
		paystackPayload("ref-3", 0, "alice"),
		paystackPayload("ref-4", 1000, ""),
		[]byte(`{"event":"charge.success","data":{"reference":"ref-5","amount":100,"currency":"BTC","metadata":{"user_id":"a"}}}`),
	}
	for _, payload := range cases {
		_, err := r.Handle(context.Background(), "paystack", payload, signPaystack(payload))
		assert.ErrorIs(t, err, ErrMalformedPayload, string(payload))
	}
}

func TestHandle_UnknownProvider(t *testing.T) {
	r, _, _ := newReconciler(t)
	_, err := r.Handle(context.Background(), "flutterwave", []byte(`{}`), "sig")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestHandle_StripePaymentIntent(t *testing.T) {
	r, st, _ := newReconciler(t)
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent","amount":2500,"currency":"usd","metadata":{"user_id":"carol"}}}}`)

	res, err := r.Handle(context.Background(), "stripe", payload, signStripe(payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, StatusCredited, res.Status)
	assert.Equal(t, "pi_123", res.Entry.ExternalReference)

	w, err := st.Wallets().Find(context.Background(), "carol", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), w.Balance)

	_, err = r.Handle(context.Background(), "stripe", payload, signStripe(payload, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCredit_LedgerMatchesBalance(t *testing.T) {
	r, st, _ := newReconciler(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := r.Credit(ctx, Event{Provider: "paystack", Reference: fmt.Sprintf("ref-%d", i), Amount: 250, Currency: "NGN", BeneficiaryID: "dave"})
		require.NoError(t, err)
	}
	w, err := st.Wallets().Find(ctx, "dave", "NGN")
	require.NoError(t, err)
	sum, err := st.Ledger().SumForWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), w.Balance)
	assert.Equal(t, w.Balance, sum)
}

// blockingNotifier holds every send until the context it was given ends.
type blockingNotifier struct {
	deadlineSet chan bool
}

func (n blockingNotifier) Send(ctx context.Context, _ notification.Message) error {
	_, ok := ctx.Deadline()
	n.deadlineSet <- ok
	<-ctx.Done()
	return ctx.Err()
}

func TestHandle_StalledNotifierStillAcknowledges(t *testing.T) {
	st := store.NewMemory()
	n := blockingNotifier{deadlineSet: make(chan bool, 1)}
	r := NewReconciler(st, n, logging.Discard(), Options{NotifyTimeout: 50 * time.Millisecond},
		NewPaystack(paystackSecret, "NGN"))

	payload := paystackPayload("ref-slow", 700, "dave")
	started := time.Now()
	res, err := r.Handle(context.Background(), "paystack", payload, signPaystack(payload))
	require.NoError(t, err)
	assert.Equal(t, StatusCredited, res.Status)
	assert.Less(t, time.Since(started), time.Second)
	assert.True(t, <-n.deadlineSet)
}
