package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20099: Ingest errors
// 20100-20199: Stamp (derived asset) errors
// 20200-20299: Sync errors
// 20300-20399: Catalog errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	TransactionFailed ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10203

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Ingest Errors (20000-20099) ==========

	BrokerError               ErrorCode = 20000
	PayloadMalformed          ErrorCode = 20001
	TimestampConversionFailed ErrorCode = 20002
	PartitionKeyMissing       ErrorCode = 20003
	PartitionWriteFailed      ErrorCode = 20004

	// ========== Stamp Errors (20100-20199) ==========

	StampFetchFailed ErrorCode = 20100
	StampsIncomplete ErrorCode = 20101
	StampSaveFailed  ErrorCode = 20102

	// ========== Sync Errors (20200-20299) ==========

	ObjectLookupFailed ErrorCode = 20200
	ObjectUploadFailed ErrorCode = 20201
	StorageCredentials ErrorCode = 20202

	// ========== Catalog Errors (20300-20399) ==========

	CatalogExtractFailed ErrorCode = 20300
	ManifestUploadFailed ErrorCode = 20301
	WarehouseMergeFailed ErrorCode = 20302
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	LockFailed: "Failed to acquire lock",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Ingest
	BrokerError:               "Message broker reported an error",
	PayloadMalformed:          "Alert payload is malformed",
	TimestampConversionFailed: "Failed to convert detection time",
	PartitionKeyMissing:       "Partition key cannot be derived",
	PartitionWriteFailed:      "Failed to append alert to partition",

	// Stamps
	StampFetchFailed: "Failed to fetch stamps",
	StampsIncomplete: "Fewer than three stamps returned",
	StampSaveFailed:  "Failed to save stamps",

	// Sync
	ObjectLookupFailed: "Remote object lookup failed",
	ObjectUploadFailed: "Remote object upload failed",
	StorageCredentials: "Object storage credentials rejected",

	// Catalog
	CatalogExtractFailed: "Failed to extract catalog rows",
	ManifestUploadFailed: "Failed to upload manifest",
	WarehouseMergeFailed: "Warehouse merge failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Retryable reports whether the failure class is transient. The stamp
// fetcher retries only these; the rest are left to a later repair pass.
func (c ErrorCode) Retryable() bool {
	switch c {
	case BrokerError, StampFetchFailed, StampSaveFailed, ObjectUploadFailed, Timeout, ServiceUnavailable:
		return true
	default:
		return false
	}
}
