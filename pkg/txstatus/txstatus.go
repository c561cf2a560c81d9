package txstatus

/* Backend transaction status byte, as reported by ReadyForQuery. */

type TXStatus byte

const (
	TXIDLE = TXStatus('I')
	TXERR  = TXStatus('E')
	TXACT  = TXStatus('T')
)

type TxStatusMgr interface {
	TxStatus() TXStatus
}

func (s TXStatus) String() string {
	switch s {
	case TXIDLE:
		return "IDLE"
	case TXERR:
		return "ERROR"
	case TXACT:
		return "ACTIVE"
	}
	return "invalid"
}
