package tzkt

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionsBody = `[
  {
    "type": "transaction",
    "id": 501,
    "level": 3000100,
    "timestamp": "2024-03-01T12:00:00Z",
    "hash": "ooHash1",
    "sender": {"alias": "Alice", "address": "tz1alice"},
    "target": {"address": "KT1token"},
    "amount": 0,
    "bakerFee": 1200,
    "storageFee": 250,
    "allocationFee": 0,
    "status": "applied",
    "parameter": {"entrypoint": "transfer", "value": {"from": "tz1alice", "to": "tz1bob", "value": "42"}}
  },
  {
    "type": "delegation",
    "id": 500,
    "level": 3000099,
    "timestamp": "2024-03-01T11:59:30Z",
    "hash": "ooHash2",
    "sender": {"address": "tz1alice"},
    "prevDelegate": {"alias": "Baker A", "address": "tz1bakerA"},
    "newDelegate": {"address": "tz1bakerB"},
    "status": "applied"
  }
]`

func TestOperations_TransactionsEndpoint(t *testing.T) {
	client, _ := newTestClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/operations/transactions", r.URL.Path)
		assert.Equal(t, "transfer", r.URL.Query().Get("entrypoint"))
		assert.Equal(t, "3000200", r.URL.Query().Get("level.lt"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		return jsonHTTPResponse(http.StatusOK, transactionsBody), nil
	})

	q := chain.NewQuery(chain.EndpointTransactions).
		With("entrypoint", "transfer").
		With("level.lt", "3000200")
	ops, err := client.Operations(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	tx := ops[0]
	assert.Equal(t, int64(501), tx.ID)
	assert.Equal(t, int64(3000100), tx.Level)
	assert.Equal(t, "ooHash1", tx.Hash)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), tx.Timestamp.UTC())
	assert.Equal(t, model.KindTransaction, tx.Kind)
	assert.Equal(t, model.Alias{Address: "tz1alice", Name: "Alice"}, tx.Sender)
	assert.Equal(t, "KT1token", tx.TargetAddress())
	assert.Nil(t, tx.Initiator)
	assert.Equal(t, int64(1200), tx.BakerFee)
	assert.Equal(t, int64(250), tx.StorageFee)
	assert.Equal(t, model.StatusApplied, tx.Status)
	require.NotNil(t, tx.Parameter)
	assert.Equal(t, "transfer", tx.Entrypoint())
	assert.JSONEq(t, `{"from": "tz1alice", "to": "tz1bob", "value": "42"}`, string(tx.Parameter.Value))

	del := ops[1]
	assert.Equal(t, model.KindDelegation, del.Kind)
	require.NotNil(t, del.PrevDelegate)
	assert.Equal(t, "tz1bakerA", del.PrevDelegate.Address)
	assert.Equal(t, "Baker A", del.PrevDelegate.Name)
	require.NotNil(t, del.NewDelegate)
	assert.Equal(t, "tz1bakerB", del.NewDelegate.Address)
	assert.Nil(t, del.Parameter)
}

func TestOperations_AccountEndpoint(t *testing.T) {
	client, _ := newTestClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/accounts/tz1alice/operations", r.URL.Path)
		assert.Equal(t, "delegation,origination,transaction", r.URL.Query().Get("type"))
		return jsonHTTPResponse(http.StatusOK, `[]`), nil
	})

	q := chain.NewQuery(chain.EndpointAccountOperations).With("type", "delegation,origination,transaction")
	q.Account = "tz1alice"
	_, err := client.Operations(context.Background(), q)
	require.NoError(t, err)
}

func TestOperations_InvalidQuery(t *testing.T) {
	client, _ := newTestClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	_, err := client.Operations(context.Background(), chain.NewQuery(chain.EndpointAccountOperations))
	require.Error(t, err)

	_, err = client.Operations(context.Background(), chain.NewQuery("nope"))
	require.Error(t, err)

	_, err = client.OperationsByHash(context.Background(), "")
	require.Error(t, err)
}

func TestOperationsByHash(t *testing.T) {
	client, _ := newTestClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v1/operations/ooHash1", r.URL.Path)
		return jsonHTTPResponse(http.StatusOK, transactionsBody), nil
	})

	ops, err := client.OperationsByHash(context.Background(), "ooHash1")
	require.NoError(t, err)
	assert.Len(t, ops, 2)
}

func TestContractStandard_Cached(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		switch r.URL.Path {
		case "/v1/contracts/KT1fa2":
			return jsonHTTPResponse(http.StatusOK, `{"address":"KT1fa2","kind":"asset","tzips":["fa2"]}`), nil
		case "/v1/contracts/KT1fa12":
			return jsonHTTPResponse(http.StatusOK, `{"address":"KT1fa12","kind":"asset","tzips":["fa12"]}`), nil
		default:
			return jsonHTTPResponse(http.StatusNotFound, ""), nil
		}
	})

	standard, err := client.ContractStandard(context.Background(), "KT1fa2")
	require.NoError(t, err)
	assert.Equal(t, model.StandardFA2, standard)

	standard, err = client.ContractStandard(context.Background(), "KT1fa2")
	require.NoError(t, err)
	assert.Equal(t, model.StandardFA2, standard)
	assert.Equal(t, int32(1), calls.Load())

	standard, err = client.ContractStandard(context.Background(), "KT1fa12")
	require.NoError(t, err)
	assert.Equal(t, model.StandardFA12, standard)

	_, err = client.ContractStandard(context.Background(), "KT1missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http status 404")
}

func TestContractStandard_NoTzips(t *testing.T) {
	assert.Equal(t, model.StandardFA12, Contract{}.Standard())
	assert.Equal(t, model.StandardFA2, Contract{Tzips: []string{"fa12", "fa2"}}.Standard())
}
