package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDSN(t *testing.T) {
	t.Run("postgres scheme wins over turso", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://app:pw@localhost:5432/signals")
		t.Setenv("TURSO_DATABASE_URL", "libsql://signals.turso.io")

		dsn, err := ResolveDSN()
		require.NoError(t, err)
		assert.Equal(t, "postgres://app:pw@localhost:5432/signals", dsn)
	})

	t.Run("postgresql scheme accepted", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgresql://app:pw@localhost:5432/signals")
		t.Setenv("TURSO_DATABASE_URL", "")

		dsn, err := ResolveDSN()
		require.NoError(t, err)
		assert.Equal(t, "postgresql://app:pw@localhost:5432/signals", dsn)
	})

	t.Run("turso wins over non-postgres database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "host=localhost user=app dbname=signals")
		t.Setenv("TURSO_DATABASE_URL", "libsql://signals.turso.io")

		dsn, err := ResolveDSN()
		require.NoError(t, err)
		assert.Equal(t, "libsql://signals.turso.io", dsn)
	})

	t.Run("raw database url is the fallback", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "host=localhost user=app dbname=signals")
		t.Setenv("TURSO_DATABASE_URL", "")

		dsn, err := ResolveDSN()
		require.NoError(t, err)
		assert.Equal(t, "host=localhost user=app dbname=signals", dsn)
	})

	t.Run("nothing configured errors", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("TURSO_DATABASE_URL", "")

		_, err := ResolveDSN()
		assert.Error(t, err)
	})
}
