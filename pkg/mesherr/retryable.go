package mesherr

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

/* SQLSTATE class prefixes, see postgres errcodes appendix */
const (
	classConnection       = "08"
	classInsufficientRes  = "53"
	classOperatorShutdown = "57"
	classAuth             = "28"
	classIntegrity        = "23"
	classSyntax           = "42"
)

func asMeshError(err error) *MeshError {
	var me *MeshError
	if errors.As(err, &me) {
		return me
	}
	return nil
}

// IsRetryable reports whether err signals a transient condition that the
// router may retry: connectivity failures, timeouts, pool exhaustion and
// backend shutdown states. Permanent conditions (auth, constraint, syntax,
// missing shards) are never retryable.
//
// Parameters:
//   - err: The error to classify.
//
// Returns:
//   - bool: true if the operation may be retried against the same target.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if me := asMeshError(err); me != nil {
		switch me.ErrorCode {
		case MESH_CONNECTION_ERROR, MESH_POOL_TIMEOUT:
			return true
		case MESH_AUTH_FAILED, MESH_CONSTRAINT_ERROR, MESH_SYNTAX_ERROR,
			MESH_NO_SHARDS, MESH_CONFIG_ERROR:
			return false
		}
		/* fall through to the wrapped cause */
		err = me.Err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) < 2 {
			return false
		}
		switch pgErr.Code[:2] {
		case classConnection, classInsufficientRes, classOperatorShutdown:
			return true
		default:
			return false
		}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	/* last resort for dial failures not carrying a typed cause */
	if strings.Contains(err.Error(), "failed to connect") {
		return true
	}

	return false
}

// ClassifyExec maps a statement-execution error to a typed mesh error,
// keeping the original cause in the chain.
func ClassifyExec(err error) error {
	if err == nil {
		return nil
	}
	if asMeshError(err) != nil {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case classAuth:
			return Wrap(MESH_AUTH_FAILED, err)
		case classIntegrity:
			return Wrap(MESH_CONSTRAINT_ERROR, err)
		case classSyntax:
			return Wrap(MESH_SYNTAX_ERROR, err)
		case classConnection, classInsufficientRes, classOperatorShutdown:
			return Wrap(MESH_CONNECTION_ERROR, err)
		}
		return err
	}

	if IsRetryable(err) {
		return Wrap(MESH_CONNECTION_ERROR, err)
	}

	return err
}
