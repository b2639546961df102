package peer

// Op is the operation an entry records.
type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "del"
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Entry is one signed append to a log.
//
// For OpRemove, Key holds the hash of the removed entry.
type Entry struct {
	Seq       int64  `json:"seq"`
	Hash      string `json:"hash"`
	Op        Op     `json:"op"`
	Key       string `json:"key,omitempty"`
	Value     any    `json:"value,omitempty"`
	Identity  string `json:"identity"`
	Signature []byte `json:"signature,omitempty"`
}
