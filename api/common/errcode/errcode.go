package errcode

type ErrCode int64

const (
	SUCCESS             ErrCode = 0
	SERVICE_CEILING     ErrCode = 41002
	INVALID_METHOD      ErrCode = 42001
	INVALID_PARAMS      ErrCode = 42002
	INVALID_TRANSACTION ErrCode = 43001
	INVALID_BLOCK       ErrCode = 43003
	INVALID_HASH        ErrCode = 43004
	UNKNOWN_TRANSACTION ErrCode = 44001
	UNKNOWN_TRANSITION  ErrCode = 44002
	UNKNOWN_BLOCK       ErrCode = 44003
	UNKNOWN_HASH        ErrCode = 44004
	UNKNOWN_COMMITMENT  ErrCode = 44005
	INTERNAL_ERROR      ErrCode = 45001
)

var ErrMessage = map[ErrCode]string{
	SUCCESS:             "SUCCESS",
	SERVICE_CEILING:     "SERVICE CEILING",
	INVALID_METHOD:      "INVALID METHOD",
	INVALID_PARAMS:      "INVALID PARAMS",
	INVALID_TRANSACTION: "INVALID TRANSACTION",
	INVALID_BLOCK:       "INVALID BLOCK",
	INVALID_HASH:        "INVALID HASH",
	UNKNOWN_TRANSACTION: "UNKNOWN TRANSACTION",
	UNKNOWN_TRANSITION:  "UNKNOWN TRANSITION",
	UNKNOWN_BLOCK:       "UNKNOWN BLOCK",
	UNKNOWN_HASH:        "UNKNOWN HASH",
	UNKNOWN_COMMITMENT:  "UNKNOWN COMMITMENT",
	INTERNAL_ERROR:      "INTERNAL ERROR",
}
