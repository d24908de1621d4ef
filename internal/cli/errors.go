package cli

// Error codes for structured error responses. These codes are stable.
const (
	ErrGraphNotFound = "GRAPH_NOT_FOUND"
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrStoreFailed   = "STORE_FAILED"

	ErrQueryNotFound  = "QUERY_NOT_FOUND"
	ErrQueryInvalid   = "QUERY_INVALID"
	ErrQueryFailed    = "QUERY_FAILED"
	ErrTripleInvalid  = "TRIPLE_INVALID"
	ErrImportFailed   = "IMPORT_FAILED"
	ErrMissingArgs    = "MISSING_ARGUMENT"
	ErrFileReadFailed = "FILE_READ_ERROR"
	ErrNodeNotFound   = "NODE_NOT_FOUND"
	ErrPageExists     = "PAGE_EXISTS"
	ErrPageNotFound   = "PAGE_NOT_FOUND"
	ErrCheckFailed    = "CHECK_FAILED"
)
