package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReportKeyIsNamespaced(t *testing.T) {
	require.Equal(t, "kyc:report:case-1", reportKey("case-1"))
}

func TestNewReportCacheInvalidAddr(t *testing.T) {
	cache, err := NewReportCache("invalid-redis-host-that-does-not-exist:6379", "", time.Minute)
	require.Error(t, err)
	require.Nil(t, cache)
	require.Contains(t, err.Error(), "connect redis")
}
