package errors

// ErrCode 业务错误码
type ErrCode int

const (
	// 通用错误 1000-1999
	ErrInvalidParameter ErrCode = 1001 // bad parameter or enum value
	ErrInternalError    ErrCode = 1003 // internal error
	ErrNotFound         ErrCode = 1004 // resource not found
	ErrAlreadyExists    ErrCode = 1005 // resource already exists
	ErrOperationFailed  ErrCode = 1006 // operation failed

	// 数据库错误 6000-6999
	ErrDatabaseQuery  ErrCode = 6001 // query failed
	ErrDatabaseInsert ErrCode = 6002 // insert failed
	ErrDatabaseUpdate ErrCode = 6003 // update failed
	ErrDatabaseDelete ErrCode = 6004 // delete failed
	ErrDatabaseInit   ErrCode = 6005 // init failed

	// 会话错误 7000-7999
	ErrConversationNotFound ErrCode = 7001 // conversation not found
	ErrMessageNotFound      ErrCode = 7002 // message not found
	ErrExportFailed         ErrCode = 7003 // chat history export failed
)

// HTTPStatusCode 错误码对应的 HTTP 状态码
// 重复创建与参数校验失败一样返回 400
func (e ErrCode) HTTPStatusCode() int {
	switch {
	case e >= 1000 && e <= 1999:
		switch e {
		case ErrInvalidParameter, ErrAlreadyExists:
			return 400
		case ErrNotFound:
			return 404
		default:
			return 500
		}
	case e >= 7000 && e <= 7999:
		switch e {
		case ErrConversationNotFound, ErrMessageNotFound:
			return 404
		default:
			return 500
		}
	default:
		return 500
	}
}

// IsClientError 是否为 4xx 客户端错误
func (e ErrCode) IsClientError() bool {
	status := e.HTTPStatusCode()
	return status >= 400 && status < 500
}
