package metadata

/**
 * @brief Completion handle for consumer work issued against one frame copy.
 */
type SyncObject interface {
	/** @brief Reports without blocking whether the consumer has finished. */
	HasCompleted() bool
	/** @brief Blocks until the consumer has finished. */
	WaitUntilCompleted()
}

/**
 * @brief Supplies one SyncObject per rendered frame.
 * A nil SyncObject is treated as already completed.
 */
type SyncObjectProvider interface {
	CreateSyncObject() SyncObject
}
