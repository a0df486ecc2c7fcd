package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/CabinBranis/fhe-ido-launchpad/identity"
	"github.com/CabinBranis/fhe-ido-launchpad/ledger"
)

func setupTestHandler(t *testing.T, adminToken string) (*ledger.Registry, *ledger.ManualClock, http.Handler) {
	t.Helper()

	clock := ledger.NewManualClock(time.Unix(50, 0))
	registry := ledger.NewRegistry(ledger.Config{Clock: clock})
	handler := NewHandler(registry, &HandlerConfig{AdminToken: adminToken})

	router := chi.NewRouter()
	handler.RegisterPublicRoutes(router)
	handler.RegisterAdminRoutes(router)
	return registry, clock, router
}

func newTestKey(t *testing.T) (identity.Principal, identity.PrivateKey) {
	t.Helper()

	pub, priv, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	return pub, priv
}

func postSigned[T any](t *testing.T, router http.Handler, priv identity.PrivateKey, path string, req *T) *httptest.ResponseRecorder {
	t.Helper()

	signed, err := identity.NewSigned(priv, req)
	require.NoError(t, err)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body)))
	return w
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) *T {
	t.Helper()

	out, err := DecodeMessage[T](w.Body)
	require.NoError(t, err)
	return out
}

func createSaleOverHTTP(t *testing.T, router http.Handler, priv identity.PrivateKey) ledger.SaleID {
	t.Helper()

	w := postSigned(t, router, priv, "/sales", &CreateSaleRequest{
		TokenRef: ledger.NewPayload([]byte{0xF0}),
		Start:    time.Unix(100, 0),
		End:      time.Unix(200, 0),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeBody[CreateSaleResponse](t, w).SaleID
}

func TestHandler_CreateSale(t *testing.T) {
	registry, _, router := setupTestHandler(t, "")
	pub, priv := newTestKey(t)

	id := createSaleOverHTTP(t, router, priv)
	require.Equal(t, ledger.SaleID(0), id)

	sale, err := registry.Sale(id)
	require.NoError(t, err)
	require.Equal(t, pub.String(), sale.Owner)
}

func TestHandler_CreateSale_InvalidWindow(t *testing.T) {
	_, _, router := setupTestHandler(t, "")
	_, priv := newTestKey(t)

	w := postSigned(t, router, priv, "/sales", &CreateSaleRequest{
		Start: time.Unix(200, 0),
		End:   time.Unix(100, 0),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "InvalidWindow", decodeBody[ErrorResponse](t, w).Kind)
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	_, _, router := setupTestHandler(t, "")
	_, priv := newTestKey(t)

	signed, err := identity.NewSigned(priv, &CreateSaleRequest{
		Start: time.Unix(100, 0),
		End:   time.Unix(200, 0),
	})
	require.NoError(t, err)
	signed.Object.End = time.Unix(300, 0)
	body, err := json.Marshal(signed)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", bytes.NewReader(body)))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_RejectsMalformedBody(t *testing.T) {
	_, _, router := setupTestHandler(t, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sales", bytes.NewReader([]byte("not json"))))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_SaleIDMismatch(t *testing.T) {
	_, clock, router := setupTestHandler(t, "")
	_, priv := newTestKey(t)
	createSaleOverHTTP(t, router, priv)
	clock.Set(time.Unix(150, 0))

	// Signed body names sale 5, URL names sale 0.
	w := postSigned(t, router, priv, "/sales/0/contributions", &ContributeRequest{
		SaleID:  5,
		Payload: ledger.NewPayload([]byte{0x01}),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ContributionLifecycle(t *testing.T) {
	_, clock, router := setupTestHandler(t, "")
	_, ownerKey := newTestKey(t)
	alicePub, aliceKey := newTestKey(t)

	id := createSaleOverHTTP(t, router, ownerKey)

	// Too early.
	w := postSigned(t, router, aliceKey, "/sales/0/contributions", &ContributeRequest{
		SaleID:  id,
		Payload: ledger.NewPayload([]byte{0x01}),
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "SaleNotActive", decodeBody[ErrorResponse](t, w).Kind)

	clock.Set(time.Unix(150, 0))
	for _, payload := range [][]byte{{0x01}, {0x02}} {
		w = postSigned(t, router, aliceKey, "/sales/0/contributions", &ContributeRequest{
			SaleID:  id,
			Payload: ledger.NewPayload(payload),
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = get(t, router, "/sales/0/aggregates")
	require.Equal(t, http.StatusOK, w.Code)
	aggregates := decodeBody[ledger.Aggregates](t, w)
	require.Equal(t, uint64(1), aggregates.ContributorCount)
	require.Equal(t, uint64(2), aggregates.ContributionCount)

	w = get(t, router, "/sales/0/positions/"+alicePub.String())
	require.Equal(t, http.StatusOK, w.Code)
	pos := decodeBody[ledger.Position](t, w)
	require.Equal(t, ledger.Payload([]byte{0x02}), pos.Contribution)

	// Finalize is rejected before the window ends.
	w = postSigned(t, router, ownerKey, "/sales/0/finalize", &FinalizeRequest{SaleID: id})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "NotEnded", decodeBody[ErrorResponse](t, w).Kind)

	clock.Set(time.Unix(250, 0))
	w = postSigned(t, router, ownerKey, "/sales/0/finalize", &FinalizeRequest{
		SaleID:  id,
		Summary: ledger.NewPayload([]byte{0xAA}),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, router, aliceKey, "/sales/0/claim", &ClaimRequest{
		SaleID:     id,
		Allocation: ledger.NewPayload([]byte{0xBB}),
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postSigned(t, router, aliceKey, "/sales/0/claim", &ClaimRequest{SaleID: id})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "AlreadyClaimed", decodeBody[ErrorResponse](t, w).Kind)
}

func TestHandler_SetActiveAndTransfer(t *testing.T) {
	_, _, router := setupTestHandler(t, "")
	_, ownerKey := newTestKey(t)
	nextPub, nextKey := newTestKey(t)
	_, strangerKey := newTestKey(t)

	id := createSaleOverHTTP(t, router, ownerKey)

	w := postSigned(t, router, strangerKey, "/sales/0/active", &SetActiveRequest{SaleID: id, Active: false})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "NotAuthorized", decodeBody[ErrorResponse](t, w).Kind)

	w = postSigned(t, router, ownerKey, "/sales/0/active", &SetActiveRequest{SaleID: id, Active: false})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decodeBody[ActiveResponse](t, w).Active)

	w = postSigned(t, router, ownerKey, "/sales/0/owner", &TransferOwnershipRequest{SaleID: id, NewOwner: ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "ZeroIdentity", decodeBody[ErrorResponse](t, w).Kind)

	w = postSigned(t, router, ownerKey, "/sales/0/owner", &TransferOwnershipRequest{SaleID: id, NewOwner: nextPub.String()})
	require.Equal(t, http.StatusOK, w.Code)

	// The new owner can now manage the sale, the old one cannot.
	w = postSigned(t, router, ownerKey, "/sales/0/active", &SetActiveRequest{SaleID: id, Active: true})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = postSigned(t, router, nextKey, "/sales/0/active", &SetActiveRequest{SaleID: id, Active: true})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_QueryEndpoints(t *testing.T) {
	_, clock, router := setupTestHandler(t, "")
	_, priv := newTestKey(t)

	w := get(t, router, "/sales/0")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "SaleNotFound", decodeBody[ErrorResponse](t, w).Kind)

	createSaleOverHTTP(t, router, priv)

	w = get(t, router, "/sales")
	require.Equal(t, http.StatusOK, w.Code)
	sales := decodeBody[[]ledger.Sale](t, w)
	require.Len(t, *sales, 1)

	w = get(t, router, "/sales/0/active")
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decodeBody[ActiveResponse](t, w).Active)

	clock.Set(time.Unix(150, 0))
	w = get(t, router, "/sales/0/active")
	require.True(t, decodeBody[ActiveResponse](t, w).Active)

	w = get(t, router, "/sales/notanumber")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Events(t *testing.T) {
	_, _, router := setupTestHandler(t, "")
	_, priv := newTestKey(t)
	createSaleOverHTTP(t, router, priv)
	createSaleOverHTTP(t, router, priv)

	w := get(t, router, "/events")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody[EventsResponse](t, w).Events, 2)

	w = get(t, router, "/events?since=1")
	require.Len(t, decodeBody[EventsResponse](t, w).Events, 1)

	w = get(t, router, "/events?since=notanumber")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AdminRoutes(t *testing.T) {
	_, _, router := setupTestHandler(t, "admin:secret")
	_, priv := newTestKey(t)
	createSaleOverHTTP(t, router, priv)

	w := get(t, router, "/admin/sales")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/sales", nil)
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/sales", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/sales/0/positions", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_AdminRoutesDisabledWithoutToken(t *testing.T) {
	_, _, router := setupTestHandler(t, "")

	w := get(t, router, "/admin/sales")
	require.Equal(t, http.StatusNotFound, w.Code)
}
