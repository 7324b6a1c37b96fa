package infra

import (
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64ToNumericRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 100, -2500, 1 << 40} {
		n := Int64ToNumeric(v)
		got, err := NumericToInt64(n)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestNumericToInt64(t *testing.T) {
	t.Run("null is rejected", func(t *testing.T) {
		_, err := NumericToInt64(pgtype.Numeric{})
		assert.Error(t, err)
	})

	t.Run("positive exponent is expanded", func(t *testing.T) {
		n := pgtype.Numeric{Int: big.NewInt(5), Exp: 3, Valid: true}
		got, err := NumericToInt64(n)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), got)
	})

	t.Run("negative exponent truncates", func(t *testing.T) {
		n := pgtype.Numeric{Int: big.NewInt(5123), Exp: -3, Valid: true}
		got, err := NumericToInt64(n)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got)
	})

	t.Run("overflow is rejected", func(t *testing.T) {
		huge := new(big.Int).Lsh(big.NewInt(1), 70)
		_, err := NumericToInt64(pgtype.Numeric{Int: huge, Valid: true})
		assert.Error(t, err)
	})
}

func TestConfigLockNodes(t *testing.T) {
	cfg := &Config{LockRedisAddrs: "a:6379, b:6379 ,c:6379"}
	assert.Equal(t, []string{"a:6379", "b:6379", "c:6379"}, cfg.LockNodeAddrs())

	t.Run("even node count rejected", func(t *testing.T) {
		cfg := &Config{LockRedisAddrs: "a:6379,b:6379", TableLockLeaseMs: 2000}
		assert.Error(t, cfg.Validate())
	})

	t.Run("dev override", func(t *testing.T) {
		cfg := &Config{LockRedisAddrs: "a:6379", TableLockLeaseMs: 2000, AllowInsecureDefaults: true}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("lease floor", func(t *testing.T) {
		cfg := &Config{LockRedisAddrs: "a:6379", TableLockLeaseMs: 10, AllowInsecureDefaults: true}
		assert.Error(t, cfg.Validate())
	})
}
