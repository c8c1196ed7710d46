package blockstore

// blockRow is the meddler row shape for the primary block archive, grounded
// on the teacher's fetcher/store.dbLog row-struct pattern: plain tagged
// fields, no business logic.
type blockRow struct {
	Number     uint64 `meddler:"number"`
	Hash       []byte `meddler:"hash"`
	ParentHash []byte `meddler:"parent_hash"`
	Payload    []byte `meddler:"payload"`
}
