package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/molfp/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *DescriptorCache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, logging.NewNopLogger())
	s.cache = NewDescriptorCache(client, nil, WithPrefix("test:"), WithTTL(time.Hour), WithTTLJitter(0))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (s *CacheTestSuite) TestKey_IsStableAndFamilyScoped() {
	k1 := s.cache.Key("SphereFp", "CCO")
	s.Equal(k1, s.cache.Key("SphereFp", "CCO"))
	s.NotEqual(k1, s.cache.Key("PathFp", "CCO"))
	s.NotEqual(k1, s.cache.Key("SphereFp", "CCN"))
	s.Contains(k1, "test:desc:SphereFp:")
}

func (s *CacheTestSuite) TestKey_ScopesBySizeAndVersion() {
	narrow := s.cache.Key("PathFp:1.0:512", "CCO")
	s.NotEqual(narrow, s.cache.Key("PathFp:1.0:1024", "CCO"))
	s.NotEqual(narrow, s.cache.Key("PathFp:1.1:512", "CCO"))
	s.Contains(narrow, "test:desc:PathFp:1.0:512:")
}

func (s *CacheTestSuite) TestGet_Hit() {
	s.mock.ExpectGet(s.cache.Key("SphereFp", "CCO")).SetVal("AAAA")

	val, ok, err := s.cache.Get(context.Background(), "SphereFp", "CCO")
	s.NoError(err)
	s.True(ok)
	s.Equal("AAAA", val)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet(s.cache.Key("SphereFp", "CCO")).RedisNil()

	_, ok, err := s.cache.Get(context.Background(), "SphereFp", "CCO")
	s.NoError(err)
	s.False(ok)
}

func (s *CacheTestSuite) TestGet_Error() {
	s.mock.ExpectGet(s.cache.Key("SphereFp", "CCO")).SetErr(errors.New("down"))

	_, _, err := s.cache.Get(context.Background(), "SphereFp", "CCO")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSet_FailedTokenIsCached() {
	s.mock.ExpectSet(s.cache.Key("PathFp", "[Xe]"), "Failed", time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "PathFp", "[Xe]", "Failed"))
}

func (s *CacheTestSuite) TestGetOrCompute_MissComputesAndStores() {
	key := s.cache.Key("SphereFp", "c1ccccc1")
	s.mock.ExpectGet(key).RedisNil()
	s.mock.ExpectSet(key, "BBBB", time.Hour).SetVal("OK")

	val, hit, err := s.cache.GetOrCompute(context.Background(), "SphereFp", "c1ccccc1", func(context.Context) (string, error) {
		return "BBBB", nil
	})
	s.NoError(err)
	s.False(hit)
	s.Equal("BBBB", val)
}

func (s *CacheTestSuite) TestGetOrCompute_HitSkipsCompute() {
	s.mock.ExpectGet(s.cache.Key("SphereFp", "C")).SetVal("CCCC")

	val, hit, err := s.cache.GetOrCompute(context.Background(), "SphereFp", "C", func(context.Context) (string, error) {
		s.Fail("compute called on hit")
		return "", nil
	})
	s.NoError(err)
	s.True(hit)
	s.Equal("CCCC", val)
}

func (s *CacheTestSuite) TestGetOrCompute_ComputeErrorNotCached() {
	s.mock.ExpectGet(s.cache.Key("SphereFp", "C")).RedisNil()
	boom := errors.New("boom")

	_, _, err := s.cache.GetOrCompute(context.Background(), "SphereFp", "C", func(context.Context) (string, error) {
		return "", boom
	})
	s.ErrorIs(err, boom)
}

func (s *CacheTestSuite) TestGetOrCompute_WriteErrorSwallowed() {
	key := s.cache.Key("SphereFp", "C")
	s.mock.ExpectGet(key).RedisNil()
	s.mock.ExpectSet(key, "DDDD", time.Hour).SetErr(errors.New("readonly"))

	val, _, err := s.cache.GetOrCompute(context.Background(), "SphereFp", "C", func(context.Context) (string, error) {
		return "DDDD", nil
	})
	s.NoError(err)
	s.Equal("DDDD", val)
}

func (s *CacheTestSuite) TestInvalidateFamily() {
	match := "test:desc:PathFp:*"
	s.mock.ExpectScan(0, match, 100).SetVal([]string{"a", "b"}, 7)
	s.mock.ExpectDel("a", "b").SetVal(2)
	s.mock.ExpectScan(7, match, 100).SetVal([]string{"c"}, 0)
	s.mock.ExpectDel("c").SetVal(1)

	n, err := s.cache.InvalidateFamily(context.Background(), "PathFp")
	s.NoError(err)
	s.Equal(int64(3), n)
}

func TestDescriptorCache_ClosedClient(t *testing.T) {
	db, _ := redismock.NewClientMock()
	client := NewClientFromUniversal(db, nil)
	require.NoError(t, client.Close())
	cache := NewDescriptorCache(client, nil)

	_, _, err := cache.Get(context.Background(), "SphereFp", "C")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, cache.Set(context.Background(), "SphereFp", "C", "x"), ErrClientClosed)
}

func TestDescriptorCache_GetOrComputeCollapsesConcurrentCalls(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer client.Close()
	cache := NewDescriptorCache(client, nil)

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, _, err := cache.GetOrCompute(context.Background(), "SphereFp", "CCO", func(context.Context) (string, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond)
				return "EEEE", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "EEEE", val)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	got, err := mr.Get(cache.Key("SphereFp", "CCO"))
	require.NoError(t, err)
	assert.Equal(t, "EEEE", got)
	assert.True(t, mr.TTL(cache.Key("SphereFp", "CCO")) > 0)
}

func TestDescriptorCache_InvalidateFamilyCoversEveryScope(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer client.Close()
	cache := NewDescriptorCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "PathFp:1.0:512", "CCO", "AAAA"))
	require.NoError(t, cache.Set(ctx, "PathFp:1.0:1024", "CCO", "BBBB"))
	require.NoError(t, cache.Set(ctx, "SphereFp:1.0:512", "CCO", "CCCC"))

	n, err := cache.InvalidateFamily(ctx, "PathFp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, ok, err := cache.Get(ctx, "PathFp:1.0:1024", "CCO")
	require.NoError(t, err)
	assert.False(t, ok)
	val, ok, err := cache.Get(ctx, "SphereFp:1.0:512", "CCO")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "CCCC", val)
}

//Personal.AI order the ending
