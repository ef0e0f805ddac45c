package strategy

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mavryk-network/activity-history/internal/chain"
	chainmocks "github.com/mavryk-network/activity-history/internal/chain/mocks"
	"github.com/mavryk-network/activity-history/internal/domain/model"
)

const acct = "tz1Account"

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func rawOp(id int64, minutesAgo int) model.RawOperation {
	return model.RawOperation{
		ID:        id,
		Hash:      "oo" + string(rune('a'+id%26)),
		Timestamp: baseTime.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestPlan_AnyScope(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	plan, err := NewSelector(nil).Plan(context.Background(), src, PlanRequest{
		ChainID: model.ChainTezosMainnet,
		Account: acct,
		Scope:   model.AnyScope(),
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPseudoLimit, plan.Limit)
	require.Len(t, plan.Primary, 1)
	assert.Equal(t, chain.EndpointAccountOperations, plan.Primary[0].Endpoint)
	assert.Equal(t, acct, plan.Primary[0].Account)
	assert.Equal(t, values(
		"type", "delegation,origination,transaction",
		"sort", "1",
		"limit", "20",
	), plan.Primary[0].Params)

	require.Len(t, plan.Windowed, 2)
	assert.Equal(t, values(
		"parameter.[*].txs.[*].to_", acct,
		"sender.ne", acct,
		"initiator.ne", acct,
		"entrypoint", "transfer",
		"sort.desc", "id",
	), plan.Windowed[0].Params)
	assert.Equal(t, values(
		"parameter.to", acct,
		"sender.ne", acct,
		"initiator.ne", acct,
		"entrypoint", "transfer",
		"sort.desc", "id",
	), plan.Windowed[1].Params)
}

func TestPlan_CursorBounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)
	cursor := &model.Cursor{Level: 500, Timestamp: baseTime, Hash: "ooBoundary"}
	sel := NewSelector(nil)

	plan, err := sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.AnyScope(), PseudoLimit: 5, Cursor: cursor})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T12:00:00Z", plan.Primary[0].Params.Get("timestamp.lt"))
	assert.Equal(t, "5", plan.Primary[0].Params.Get("limit"))
	for _, q := range plan.Windowed {
		assert.Equal(t, "2024-03-01T12:00:00Z", q.Params.Get("timestamp.lt"))
	}

	plan, err = sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.NativeScope(), Cursor: cursor})
	require.NoError(t, err)
	assert.Equal(t, values(
		"anyof.sender.target.initiator", acct,
		"amount.ne", "0",
		"sort.desc", "id",
		"limit", "20",
		"timestamp.lt", "2024-03-01T12:00:00Z",
	), plan.Primary[0].Params)
	assert.Empty(t, plan.Windowed)

	plan, err = sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.LiquidityScope("KT1Liq"), Cursor: cursor})
	require.NoError(t, err)
	assert.Equal(t, chain.EndpointTransactions, plan.Primary[0].Endpoint)
	assert.Equal(t, values(
		"initiator", acct,
		"target", "KT1Liq",
		"entrypoint", "mintOrBurn",
		"sort.desc", "level",
		"limit", "20",
		"level.lt", "500",
	), plan.Primary[0].Params)
}

func TestPlan_TokenScopeResolvesStandard(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)
	sel := NewSelector(nil)

	src.EXPECT().ContractStandard(gomock.Any(), "KT1Fa2").Return(model.StandardFA2, nil)
	plan, err := sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.TokenScope("KT1Fa2", "3")})
	require.NoError(t, err)
	assert.Equal(t, model.StandardFA2, plan.Standard)
	assert.Equal(t, values(
		"target", "KT1Fa2",
		"entrypoint", "transfer",
		"parameter.[*].in", `[{"from_":"tz1Account","txs":[{"token_id":"3"}]},{"txs":[{"to_":"tz1Account","token_id":"3"}]}]`,
		"sort.desc", "level",
		"limit", "20",
	), plan.Primary[0].Params)

	src.EXPECT().ContractStandard(gomock.Any(), "KT1Fa12").Return(model.StandardFA12, nil)
	plan, err = sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.TokenScope("KT1Fa12", "")})
	require.NoError(t, err)
	assert.Equal(t, `[{"from":"tz1Account"},{"to":"tz1Account"}]`, plan.Primary[0].Params.Get("parameter.in"))

	src.EXPECT().ContractStandard(gomock.Any(), "KT1Down").Return(model.TokenStandard(""), errors.New("http status 502"))
	_, err = sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.TokenScope("KT1Down", "0")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve token standard")
}

func TestPlan_RejectsBadRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)
	sel := NewSelector(nil)

	_, err := sel.Plan(context.Background(), src, PlanRequest{Scope: model.AnyScope()})
	assert.Error(t, err)
	_, err = sel.Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.AssetScope{Kind: "nft"}})
	assert.Error(t, err)
}

func TestExecute_WindowsIncomingQueries(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	plan, err := NewSelector(nil).Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.AnyScope()})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		windowed []url.Values
	)
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q chain.Query) ([]model.RawOperation, error) {
			if q.Endpoint == chain.EndpointAccountOperations {
				return []model.RawOperation{rawOp(10, 0), rawOp(6, 30)}, nil
			}
			mu.Lock()
			windowed = append(windowed, q.Params)
			mu.Unlock()
			if q.Params.Get("parameter.to") != "" {
				return []model.RawOperation{rawOp(8, 10), rawOp(6, 30)}, nil
			}
			return []model.RawOperation{rawOp(9, 5)}, nil
		}).Times(3)

	ops, err := Execute(context.Background(), src, plan)
	require.NoError(t, err)

	got := make([]int64, 0, len(ops))
	for _, o := range ops {
		got = append(got, o.ID)
	}
	assert.Equal(t, []int64{10, 9, 8, 6}, got)

	require.Len(t, windowed, 2)
	for _, params := range windowed {
		assert.Equal(t, "2024-03-01T11:30:00Z", params.Get("timestamp.ge"))
		assert.Empty(t, params.Get("limit"))
	}
}

func TestExecute_EmptyPrimaryFallsBackToLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	plan, err := NewSelector(nil).Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.AnyScope(), PseudoLimit: 7})
	require.NoError(t, err)

	var mu sync.Mutex
	limits := map[string]string{}
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q chain.Query) ([]model.RawOperation, error) {
			mu.Lock()
			defer mu.Unlock()
			if q.Endpoint == chain.EndpointAccountOperations {
				return nil, nil
			}
			assert.Empty(t, q.Params.Get("timestamp.ge"))
			limits[q.Params.Encode()] = q.Params.Get("limit")
			return nil, nil
		}).Times(3)

	ops, err := Execute(context.Background(), src, plan)
	require.NoError(t, err)
	assert.Empty(t, ops)
	require.Len(t, limits, 2)
	for _, limit := range limits {
		assert.Equal(t, "7", limit)
	}
}

func TestExecute_PropagatesErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)
	boom := errors.New("http status 500")

	plan, err := NewSelector(nil).Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.NativeScope()})
	require.NoError(t, err)
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).Return(nil, boom)
	_, err = Execute(context.Background(), src, plan)
	require.ErrorIs(t, err, boom)

	plan, err = NewSelector(nil).Plan(context.Background(), src, PlanRequest{Account: acct, Scope: model.AnyScope()})
	require.NoError(t, err)
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).Return([]model.RawOperation{rawOp(1, 0)}, nil)
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).Return(nil, boom).Times(2)
	_, err = Execute(context.Background(), src, plan)
	require.ErrorIs(t, err, boom)
}

func TestExecute_SingleQueryIsSorted(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	plan := Plan{Primary: []chain.Query{chain.NewQuery(chain.EndpointTransactions)}}
	src.EXPECT().Operations(gomock.Any(), gomock.Any()).
		Return([]model.RawOperation{rawOp(3, 3), rawOp(5, 1), rawOp(4, 2)}, nil)

	ops, err := Execute(context.Background(), src, plan)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, int64(5), ops[0].ID)
	assert.Equal(t, int64(3), ops[2].ID)
}
