package cache

// DefaultCapacity is used when a cache is created with a non-positive capacity.
const DefaultCapacity = 1000

// Record is a stream event stored in a cache.
type Record interface {
	GetSymbol() string
	// GetID returns the record identity within its symbol. It may be empty.
	GetID() string
	// GetTimestamp returns the event time in milliseconds.
	GetTimestamp() int64
}

// Cache is a bounded, insertion-ordered record window.
type Cache[T Record] interface {
	Append(record T)
	Values() []T
	Len() int
	Cap() int
	GetLimit(symbol string, limit int) int
	Clear()
}

var (
	_ Cache[Record] = (*Plain[Record])(nil)
	_ Cache[Record] = (*Keyed[Record])(nil)
)

func capacityOrDefault(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

// limitOf caps limit by count. A non-positive limit means no limit was requested.
func limitOf(count, limit int) int {
	if limit <= 0 || limit > count {
		return count
	}
	return limit
}
