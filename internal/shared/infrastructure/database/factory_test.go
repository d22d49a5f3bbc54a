package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnection_UnsupportedDriver(t *testing.T) {
	_, err := NewConnection(context.Background(), Config{Driver: Driver("mysql")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestDefaultSQLitePath(t *testing.T) {
	assert.Contains(t, DefaultSQLitePath(), ".tasklist")
}
