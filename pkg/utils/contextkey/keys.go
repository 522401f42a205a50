package contextkey

// key is a private type to avoid context key collisions across packages.
type key string

const (
	Topic     key = "topic"
	RunID     key = "run_id"
	Partition key = "partition"
	RequestID key = "request_id"
)
