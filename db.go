// Package kvbench is a synthetic workload generator and benchmark driver
// for key-value stores. It generates keys and payloads from configurable
// statistical distributions, issues a configurable operation mix from
// concurrent rate-paced routines, and reports merged latency histograms
// and throughput at the end of a run.
package kvbench

// Binary represents an arbitrary binary value (byte array).
type Binary []byte

// KVMap is the field name to value mapping of one record.
type KVMap map[string]Binary

// StatusType is the outcome of a single DB operation.
type StatusType uint8

const (
	StatusOK StatusType = 1 + iota
	StatusError
	StatusNotFound
	StatusNotImplemented
	StatusUnexpectedState
	StatusBadRequest
	StatusForbidden
	StatusTimeout
	StatusServiceUnavailable
)

func (self StatusType) String() string {
	switch self {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusNotImplemented:
		return "NOT_IMPLEMENTED"
	case StatusUnexpectedState:
		return "UNEXPECTED_STATE"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusForbidden:
		return "FORBIDDEN"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_STATUS"
	}
}

// IsFatal reports whether the status marks the backend as unusable for
// the rest of the run.
func (self StatusType) IsFatal() bool {
	return self == StatusServiceUnavailable
}

// DB is the layer for accessing a database to be benchmarked. Each
// routine in the client is given its own instance, so implementations
// need not be safe for concurrent use. Construct with a no-argument
// constructor; any configuration-based setup belongs in Init().
//
// The benchmark does not interpret the returned statuses beyond OK,
// TIMEOUT and SERVICE_UNAVAILABLE; it counts them and presents the
// counts to the user. The exact semantics of Insert, Update and Delete
// vary from database to database, so implement whatever matches the
// backend's defaults and document the choice when publishing results.
type DB interface {
	// Set the properties for this DB.
	SetProperties(p Properties)

	// Get the properties for this DB.
	GetProperties() Properties

	// Initialize any state for this DB.
	// Called once per DB instance; there is one DB instance per client routine.
	Init() error

	// Cleanup any state for this DB.
	// Called once per DB instance; there is one DB instance per client routine.
	Cleanup() error

	// Read a record from the database. If fields is empty, all fields
	// are returned.
	Read(table string, key string, fields []string) (KVMap, StatusType)

	// Perform a range scan of recordCount records starting at startKey.
	Scan(table string, startKey string, recordCount int64, fields []string) ([]KVMap, StatusType)

	// Update a record in the database. Field/value pairs in values are
	// written into the record, overwriting existing values with the same
	// field name.
	Update(table string, key string, values KVMap) StatusType

	// Insert a record in the database with the given field/value pairs.
	Insert(table string, key string, values KVMap) StatusType

	// Delete a record from the database.
	Delete(table string, key string) StatusType
}

// DBBase carries the properties of a DB instance. Adapters embed it.
type DBBase struct {
	p Properties
}

func NewDBBase() *DBBase {
	return &DBBase{}
}

func (self *DBBase) SetProperties(p Properties) {
	self.p = p
}

func (self *DBBase) GetProperties() Properties {
	return self.p
}
