package storage

// DefaultRequiredAttributes are the ceph-client attributes a peer must publish
// before the networked backend can be used.
var DefaultRequiredAttributes = []string{"key", "auth", "mon_hosts"}

// CredentialKeyAttribute is the relation attribute carrying the cephx key.
const CredentialKeyAttribute = "key"

// Evaluator picks the storage backend.
type Evaluator struct {
	// RequiredAttributes overrides DefaultRequiredAttributes when non-empty.
	RequiredAttributes []string
}

// Evaluate returns the verdict for the networked relation and the number of
// attached local volumes. A present networked relation always wins, even when
// local storage is attached too.
func (e Evaluator) Evaluate(networked RelationState, localStorageCount int) Verdict {
	if networked.Present() {
		if !networked.Ready() || !networked.HasAttributes(e.required()...) {
			return NotReady(ReasonCredentialPending)
		}
		key := networked.Data[CredentialKeyAttribute]
		return Ready(NetworkedRemote(key), networked.Context())
	}
	if localStorageCount > 0 {
		return Ready(LocalAttached(), nil)
	}
	return NotReady(ReasonNoBackend)
}

func (e Evaluator) required() []string {
	keys := DefaultRequiredAttributes
	if len(e.RequiredAttributes) > 0 {
		keys = e.RequiredAttributes
	}
	// The credential key is always required.
	for _, k := range keys {
		if k == CredentialKeyAttribute {
			return keys
		}
	}
	return append([]string{CredentialKeyAttribute}, keys...)
}
