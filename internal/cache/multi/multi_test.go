package multi

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/interfaces/mock"
	"go-offline-cache/internal/models"
)

func testEntry(body string) *models.CacheEntry {
	return &models.CacheEntry{
		URL:        "https://portfolio.example/",
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       []byte(body),
	}
}

func newTwoLevelCache(ctrl *gomock.Controller, propagate bool) (*MultiCache, *mock.MockCache, *mock.MockCache) {
	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)
	mc := NewMultiCache(
		[]interfaces.Cache{cache1, cache2},
		[]models.CacheLevel{models.CacheLevelL1, models.CacheLevelL2},
		propagate,
		zap.NewNop(),
	)
	return mc, cache1, cache2
}

func TestNewMultiCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)

	assert.Equal(t, 2, mc.GetCacheCount())
	assert.Equal(t, cache1, mc.caches[0])
	assert.Equal(t, cache2, mc.caches[1])
}

func TestMultiCache_GetWithLevel_FirstCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, _ := newTwoLevelCache(ctrl, true)
	entry := testEntry("home")
	cache1.EXPECT().Get("key").Return(entry, true).Times(1)
	// cache2.Get should not be called since cache1 has the entry

	result := mc.GetWithLevel("key")

	assert.True(t, result.Found)
	assert.Equal(t, models.CacheLevelL1, result.Level)
	assert.Same(t, entry, result.Entry)
}

func TestMultiCache_GetWithLevel_SecondCacheHit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)
	entry := testEntry("home")
	cache1.EXPECT().Get("key").Return(nil, false)
	cache2.EXPECT().Get("key").Return(entry, true)

	result := mc.GetWithLevel("key")

	assert.True(t, result.Found)
	assert.Equal(t, models.CacheLevelL2, result.Level)
}

func TestMultiCache_GetWithLevel_Propagation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, true)
	entry := testEntry("home")
	cache1.EXPECT().Get("key").Return(nil, false)
	cache2.EXPECT().Get("key").Return(entry, true)
	cache1.EXPECT().Put("key", entry).Return(nil)

	entryGot, found := mc.Get("key")

	assert.True(t, found)
	assert.Same(t, entry, entryGot)
}

func TestMultiCache_GetWithLevel_PropagationFailureStillHits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, true)
	entry := testEntry("home")
	cache1.EXPECT().Get("key").Return(nil, false)
	cache2.EXPECT().Get("key").Return(entry, true)
	cache1.EXPECT().Put("key", entry).Return(errors.New("entry too large"))

	result := mc.GetWithLevel("key")

	assert.True(t, result.Found)
	assert.Equal(t, models.CacheLevelL2, result.Level)
}

func TestMultiCache_GetWithLevel_Miss(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, true)
	cache1.EXPECT().Get("key").Return(nil, false)
	cache2.EXPECT().Get("key").Return(nil, false)

	result := mc.GetWithLevel("key")

	assert.False(t, result.Found)
	assert.Nil(t, result.Entry)
	assert.Equal(t, models.CacheLevelMiss, result.Level)
}

func TestMultiCache_GetWithLevel_NoCaches(t *testing.T) {
	mc := NewMultiCache(nil, nil, false, zap.NewNop())

	result := mc.GetWithLevel("key")

	assert.False(t, result.Found)
	assert.Equal(t, models.CacheLevelMiss, result.Level)
}

func TestMultiCache_Put(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)
	entry := testEntry("home")
	cache1.EXPECT().Put("key", entry).Return(nil)
	cache2.EXPECT().Put("key", entry).Return(nil)

	assert.NoError(t, mc.Put("key", entry))
}

func TestMultiCache_Put_JoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)
	entry := testEntry("home")
	l2Err := errors.New("keydb unavailable")
	cache1.EXPECT().Put("key", entry).Return(nil)
	cache2.EXPECT().Put("key", entry).Return(l2Err)

	err := mc.Put("key", entry)

	require.Error(t, err)
	assert.ErrorIs(t, err, l2Err)
	assert.Contains(t, err.Error(), "l2")
}

func TestMultiCache_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)
	cache1.EXPECT().Delete("key")
	cache2.EXPECT().Delete("key")

	mc.Delete("key")
}

func TestMultiCache_Keys(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc, cache1, cache2 := newTwoLevelCache(ctrl, false)
	cache1.EXPECT().Keys().Return([]string{"b", "a"}, nil)
	cache2.EXPECT().Keys().Return([]string{"c", "a"}, nil)

	keys, err := mc.Keys()

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestMultiStorage_Open(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)
	cache1 := mock.NewMockCache(ctrl)
	cache2 := mock.NewMockCache(ctrl)

	storage1.EXPECT().Open("v1").Return(cache1, nil)
	storage2.EXPECT().Open("v1").Return(cache2, nil)

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, true, zap.NewNop())

	cache, err := ms.Open("v1")
	require.NoError(t, err)

	mc, ok := cache.(*MultiCache)
	require.True(t, ok)
	assert.Equal(t, 2, mc.GetCacheCount())
	assert.True(t, mc.enablePropagation)
	assert.Equal(t, 2, ms.GetLevelCount())
}

func TestMultiStorage_Open_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)

	storage1.EXPECT().Open("v1").Return(mock.NewMockCache(ctrl), nil)
	storage2.EXPECT().Open("v1").Return(nil, errors.New("connection refused"))

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, false, zap.NewNop())

	cache, err := ms.Open("v1")
	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestMultiStorage_Names(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)
	storage1.EXPECT().Names().Return([]string{"v2"}, nil)
	storage2.EXPECT().Names().Return([]string{"v1", "v2"}, nil)

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, false, zap.NewNop())

	names, err := ms.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, names)
}

func TestMultiStorage_Names_PartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)
	storage1.EXPECT().Names().Return([]string{"v2"}, nil)
	storage2.EXPECT().Names().Return(nil, errors.New("timeout"))

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, false, zap.NewNop())

	names, err := ms.Names()
	assert.Error(t, err)
	assert.Equal(t, []string{"v2"}, names)
}

func TestMultiStorage_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)
	storage1.EXPECT().Delete("v1").Return(false, nil)
	storage2.EXPECT().Delete("v1").Return(true, nil)

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, false, zap.NewNop())

	existed, err := ms.Delete("v1")
	require.NoError(t, err)
	assert.True(t, existed)
}

func TestMultiStorage_Delete_ContinuesAfterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	storage1 := mock.NewMockCacheStorage(ctrl)
	storage2 := mock.NewMockCacheStorage(ctrl)
	storage1.EXPECT().Delete("v1").Return(false, errors.New("boom"))
	storage2.EXPECT().Delete("v1").Return(true, nil)

	ms := NewMultiStorage([]Level{
		{Name: models.CacheLevelL1, Storage: storage1},
		{Name: models.CacheLevelL2, Storage: storage2},
	}, false, zap.NewNop())

	existed, err := ms.Delete("v1")
	assert.Error(t, err)
	assert.True(t, existed)
}
