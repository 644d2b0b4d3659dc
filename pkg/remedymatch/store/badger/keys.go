package badger

// Key prefixes for the record types kept in one keyspace.
const (
	drugPrefix    = "drug:"
	remedyPrefix  = "remedy:"
	mappingPrefix = "mapping:"
	orderSeqKey   = "seq:order"
)

// keySep separates the two halves of a mapping key. IDs never contain it.
const keySep = "\x00"

func makeDrugKey(id string) []byte {
	return []byte(drugPrefix + id)
}

func makeRemedyKey(id string) []byte {
	return []byte(remedyPrefix + id)
}

// makeMappingKey generates a composite key for a mapping.
// Format: prefix drugID \x00 remedyID
func makeMappingKey(drugID, remedyID string) []byte {
	return []byte(mappingPrefix + drugID + keySep + remedyID)
}

// makeMappingDrugPrefix generates the prefix shared by every mapping of a drug.
func makeMappingDrugPrefix(drugID string) []byte {
	return []byte(mappingPrefix + drugID + keySep)
}
