package grouper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	chainmocks "github.com/mavryk-network/activity-history/internal/chain/mocks"
	"github.com/mavryk-network/activity-history/internal/domain/model"
)

func op(id int64, hash string) model.RawOperation {
	return model.RawOperation{ID: id, Hash: hash, Kind: model.KindTransaction}
}

func groupHashes(groups []model.OperationsGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Hash)
	}
	return out
}

func TestBuild_FirstSeenOrderAndSortedGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	raw := []model.RawOperation{op(9, "ooB"), op(8, "ooA"), op(7, "ooB"), op(5, "ooC")}
	gomock.InOrder(
		src.EXPECT().OperationsByHash(gomock.Any(), "ooB").Return([]model.RawOperation{op(7, "ooB"), op(9, "ooB"), op(8, "ooB")}, nil),
		src.EXPECT().OperationsByHash(gomock.Any(), "ooA").Return([]model.RawOperation{op(8, "ooA")}, nil),
		src.EXPECT().OperationsByHash(gomock.Any(), "ooC").Return([]model.RawOperation{op(4, "ooC"), op(5, "ooC")}, nil),
	)

	groups, err := NewBuilder(nil).Build(context.Background(), src, raw, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ooB", "ooA", "ooC"}, groupHashes(groups))

	for _, g := range groups {
		for i := 1; i < len(g.Operations); i++ {
			assert.Greater(t, g.Operations[i-1].ID, g.Operations[i].ID)
		}
	}
}

func TestBuild_DropsOnlyBoundaryHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	raw := []model.RawOperation{op(10, "ooBoundary"), op(9, "ooX"), op(8, "ooY")}
	src.EXPECT().OperationsByHash(gomock.Any(), "ooX").Return([]model.RawOperation{op(9, "ooX")}, nil)
	src.EXPECT().OperationsByHash(gomock.Any(), "ooY").Return([]model.RawOperation{op(8, "ooY")}, nil)

	groups, err := NewBuilder(nil).Build(context.Background(), src, raw, BuildOptions{
		Cursor: &model.Cursor{Level: 1, Hash: "ooBoundary"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ooX", "ooY"}, groupHashes(groups))
}

func TestBuild_SkipsSeenHashes(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	raw := []model.RawOperation{op(3, "ooOld"), op(2, "ooNew")}
	src.EXPECT().OperationsByHash(gomock.Any(), "ooNew").Return([]model.RawOperation{op(2, "ooNew")}, nil)

	groups, err := NewBuilder(nil).Build(context.Background(), src, raw, BuildOptions{
		Seen: map[string]struct{}{"ooOld": {}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ooNew"}, groupHashes(groups))
}

func TestBuild_EmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	groups, err := NewBuilder(nil).Build(context.Background(), src, nil, BuildOptions{})
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBuild_SkipsVanishedGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	src.EXPECT().OperationsByHash(gomock.Any(), "ooGone").Return(nil, nil)
	src.EXPECT().OperationsByHash(gomock.Any(), "ooKept").Return([]model.RawOperation{op(1, "ooKept")}, nil)

	groups, err := NewBuilder(nil).Build(context.Background(), src,
		[]model.RawOperation{op(2, "ooGone"), op(1, "ooKept")}, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ooKept"}, groupHashes(groups))
}

func TestBuild_StaleStopsBeforeNextFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)

	stale := false
	src.EXPECT().OperationsByHash(gomock.Any(), "ooA").
		DoAndReturn(func(context.Context, string) ([]model.RawOperation, error) {
			stale = true
			return []model.RawOperation{op(2, "ooA")}, nil
		})

	groups, err := NewBuilder(nil).Build(context.Background(), src,
		[]model.RawOperation{op(2, "ooA"), op(1, "ooB")},
		BuildOptions{Stale: func() bool { return stale }})
	require.ErrorIs(t, err, ErrStale)
	assert.Nil(t, groups)
}

func TestBuild_FetchErrorIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := chainmocks.NewMockOperationSource(ctrl)
	boom := errors.New("http status 503")

	src.EXPECT().OperationsByHash(gomock.Any(), "ooA").Return(nil, boom)

	_, err := NewBuilder(nil).Build(context.Background(), src, []model.RawOperation{op(1, "ooA")}, BuildOptions{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ooA")
}
