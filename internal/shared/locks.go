package shared

// entityLockNamespace keeps ledger advisory locks out of the way of other
// pg_advisory users sharing the database.
const entityLockNamespace int64 = 0x4D45524944 // "MERID"

// EntityLockID derives the advisory lock id that serializes writers for one
// entity. Posting transactions take it before validation so a period check
// never races a concurrent apply on the same entity.
func EntityLockID(entityID int64) int64 {
	return entityLockNamespace<<20 | (entityID & 0xFFFFF)
}
