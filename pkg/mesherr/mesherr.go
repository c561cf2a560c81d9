package mesherr

import "fmt"

const (
	MESH_UNEXPECTED        = "MESHU"
	MESH_NO_SHARDS         = "MESHD"
	MESH_ROUTING_ERROR     = "MESHR"
	MESH_CONNECTION_ERROR  = "MESHO"
	MESH_POOL_TIMEOUT      = "MESHP"
	MESH_AUTH_FAILED       = "MESHA"
	MESH_CONSTRAINT_ERROR  = "MESHC"
	MESH_SYNTAX_ERROR      = "MESHS"
	MESH_TX_ABORTED        = "MESHT"
	MESH_TX_PARTIAL_COMMIT = "MESHW"
	MESH_TX_PROTOCOL_ERROR = "MESHX"
	MESH_CONFIG_ERROR      = "MESHF"
)

var existingErrorCodeMap = map[string]string{
	MESH_NO_SHARDS:         "no worker shards configured",
	MESH_ROUTING_ERROR:     "routing failed, retries exhausted",
	MESH_CONNECTION_ERROR:  "connection error",
	MESH_POOL_TIMEOUT:      "connection pool acquire timed out",
	MESH_AUTH_FAILED:       "authentication failed",
	MESH_CONSTRAINT_ERROR:  "constraint violation",
	MESH_SYNTAX_ERROR:      "syntax error",
	MESH_TX_ABORTED:        "distributed transaction aborted",
	MESH_TX_PARTIAL_COMMIT: "distributed transaction committed, commit pending on some participants",
	MESH_TX_PROTOCOL_ERROR: "distributed transaction protocol violation",
	MESH_CONFIG_ERROR:      "invalid configuration",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &MeshError{}

type MeshError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *MeshError {
	err := MeshError{
		Err:       fmt.Errorf("%s", errorMsg),
		ErrorCode: errorCode,
	}
	return &err
}

func Newf(errorCode string, format string, a ...any) *MeshError {
	err := MeshError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
	return &err
}

// Wrap attaches a mesh error code to an underlying cause, preserving it
// for errors.Is/As chains.
func Wrap(errorCode string, cause error) *MeshError {
	return &MeshError{
		Err:       cause,
		ErrorCode: errorCode,
	}
}

func (er *MeshError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *MeshError) Unwrap() error {
	return er.Err
}

// CodeOf extracts the mesh error code from err, or MESH_UNEXPECTED if err
// carries none.
func CodeOf(err error) string {
	if me := asMeshError(err); me != nil {
		return me.ErrorCode
	}
	return MESH_UNEXPECTED
}
