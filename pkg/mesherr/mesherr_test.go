package mesherr_test

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/pgmesh/pgmesh/pkg/mesherr"
)

func TestRetryableClassification(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"pool timeout", mesherr.New(mesherr.MESH_POOL_TIMEOUT, "pool drained"), true},
		{"connection error", mesherr.New(mesherr.MESH_CONNECTION_ERROR, "refused"), true},
		{"no shards", mesherr.New(mesherr.MESH_NO_SHARDS, "none"), false},
		{"auth", mesherr.New(mesherr.MESH_AUTH_FAILED, "bad password"), false},
		{"constraint", mesherr.New(mesherr.MESH_CONSTRAINT_ERROR, "duplicate key"), false},
		{"syntax", mesherr.New(mesherr.MESH_SYNTAX_ERROR, "near SELECT"), false},
		{"pg connection class", &pgconn.PgError{Code: "08006"}, true},
		{"pg shutdown class", &pgconn.PgError{Code: "57P01"}, true},
		{"pg auth class", &pgconn.PgError{Code: "28P01"}, false},
		{"pg integrity class", &pgconn.PgError{Code: "23505"}, false},
		{"pg syntax class", &pgconn.PgError{Code: "42601"}, false},
		{"pg dial failure", &pgconn.ConnectError{}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"econnrefused", syscall.ECONNREFUSED, true},
		{"econnreset", fmt.Errorf("exec: %w", syscall.ECONNRESET), true},
		{"plain", errors.New("something else"), false},
	} {
		assert.Equalf(tc.retryable, mesherr.IsRetryable(tc.err), "case %q", tc.name)
	}
}

func TestClassifyExec(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(mesherr.ClassifyExec(nil))

	err := mesherr.ClassifyExec(&pgconn.PgError{Code: "28P01", Message: "password authentication failed"})
	assert.Equal(mesherr.MESH_AUTH_FAILED, mesherr.CodeOf(err))
	assert.False(mesherr.IsRetryable(err))

	err = mesherr.ClassifyExec(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.Equal(mesherr.MESH_CONSTRAINT_ERROR, mesherr.CodeOf(err))

	err = mesherr.ClassifyExec(&pgconn.PgError{Code: "42601", Message: "syntax error"})
	assert.Equal(mesherr.MESH_SYNTAX_ERROR, mesherr.CodeOf(err))

	err = mesherr.ClassifyExec(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	assert.Equal(mesherr.MESH_CONNECTION_ERROR, mesherr.CodeOf(err))
	assert.True(mesherr.IsRetryable(err))

	err = mesherr.ClassifyExec(syscall.ECONNREFUSED)
	assert.Equal(mesherr.MESH_CONNECTION_ERROR, mesherr.CodeOf(err))

	/* already classified errors pass through */
	orig := mesherr.New(mesherr.MESH_TX_ABORTED, "aborted")
	assert.Equal(error(orig), mesherr.ClassifyExec(orig))
}

func TestErrorChainPreserved(t *testing.T) {
	assert := assert.New(t)

	cause := syscall.ECONNREFUSED
	err := mesherr.Wrap(mesherr.MESH_ROUTING_ERROR, mesherr.Wrap(mesherr.MESH_CONNECTION_ERROR, cause))

	assert.True(errors.Is(err, syscall.ECONNREFUSED))
	assert.Equal(mesherr.MESH_ROUTING_ERROR, mesherr.CodeOf(err))
	assert.Contains(err.Error(), "MESHR")
}

func TestGetMessageByCode(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("no worker shards configured", mesherr.GetMessageByCode(mesherr.MESH_NO_SHARDS))
	assert.Equal("Unexpected error", mesherr.GetMessageByCode("NOPE"))
}
