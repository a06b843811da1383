package kvbench

// OperationKind names the operations of the transaction mix.
type OperationKind uint8

const (
	OperationInsert OperationKind = 1 + iota
	OperationRead
	OperationUpdate
	OperationScan
	OperationReadModifyWrite
	OperationDelete
)

// OperationKinds lists every kind in report order.
var OperationKinds = []OperationKind{
	OperationInsert,
	OperationRead,
	OperationUpdate,
	OperationScan,
	OperationReadModifyWrite,
	OperationDelete,
}

func (self OperationKind) String() string {
	switch self {
	case OperationInsert:
		return "INSERT"
	case OperationRead:
		return "READ"
	case OperationUpdate:
		return "UPDATE"
	case OperationScan:
		return "SCAN"
	case OperationReadModifyWrite:
		return "READ-MODIFY-WRITE"
	case OperationDelete:
		return "DELETE"
	default:
		return "UNKNOWN_OPERATION"
	}
}

// Operation is one fully materialized request against the backend. The
// driver fills in exactly the parts the kind needs: Values for writes,
// Fields for reads and scans, ScanLength for scans. Once built it is
// immutable; the executor only reads it.
type Operation struct {
	Kind       OperationKind
	Key        string
	Fields     []string
	Values     KVMap
	ScanLength int64

	// Key sequence number behind Key, kept for insert acknowledgement.
	keyNum int64
}
