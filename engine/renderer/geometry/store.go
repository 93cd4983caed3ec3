package geometry

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// slotInfo describes where a slot lives. Offsets and capacities are the same
// in every frame buffer copy.
type slotInfo struct {
	vertexOffset   int
	vertexCapacity int
	vertexCount    int

	indexOffset   int
	indexCapacity int
	indexCount    int
}

// Store packs the vertex and index data of many slots into a pair of growable
// buffers, mirrored across a ring of frame buffer copies. Writes land in the
// current copy only; a copy is made current again only after the sync object
// issued for it has completed, and is then brought up to date from its
// predecessor.
//
// Store is not safe for concurrent use. All calls are expected from the frame
// preparation goroutine.
type Store struct {
	id       uuid.UUID
	config   Config
	provider metadata.SyncObjectProvider

	frames  []*frameBuffer
	current int

	slots *core.IdentifierPool[*slotInfo]
	clock *core.Clock

	frameCount     uint64
	relocations    int
	fenceWaits     int
	fenceStalls    int
	lastFenceWait  time.Duration
	totalFenceWait time.Duration
}

// NewStore creates a store with the given sync object provider. A nil provider
// makes every frame complete immediately.
func NewStore(provider metadata.SyncObjectProvider, config Config) *Store {
	config = config.WithDefaults()

	s := &Store{
		id:       uuid.New(),
		config:   config,
		provider: provider,
		frames:   make([]*frameBuffer, config.FrameBufferCount),
		slots:    core.NewIdentifierPool[*slotInfo](64),
		clock:    core.NewClock(),
	}
	for i := range s.frames {
		s.frames[i] = newFrameBuffer(config)
	}
	s.frames[0].state = FrameStateWritable

	core.LogDebug("geometry store %s created with %d frame buffers (%d vertices, %d indices)",
		s.id, config.FrameBufferCount, config.InitialVertexCapacity, config.InitialIndexCapacity)
	return s
}

func (s *Store) ID() uuid.UUID {
	return s.id
}

// CurrentFrameBuffer returns the index of the copy writes currently go to.
func (s *Store) CurrentFrameBuffer() int {
	return s.current
}

// SetValidation toggles the consistency checks at runtime.
func (s *Store) SetValidation(enabled bool) {
	s.config.Validate = enabled
}

// FrameState returns the state of the given frame buffer copy.
func (s *Store) FrameState(frame int) FrameState {
	return s.frames[frame].state
}

// AllocateSlot reserves room for vertexCount vertices and indexCount indices.
// The slot starts out empty: its render parameters report zero counts until
// data is written.
func (s *Store) AllocateSlot(vertexCount, indexCount int) (metadata.Slot, error) {
	if vertexCount < 0 || indexCount < 0 {
		return metadata.InvalidSlot, core.Precondition(core.ErrOutOfRange, "cannot allocate a slot of %d vertices and %d indices", vertexCount, indexCount)
	}

	cur := s.frames[s.current]
	if !cur.vertices.CanAllocate(vertexCount) {
		return metadata.InvalidSlot, core.Precondition(core.ErrCapacityExhausted, "no room for %d vertices (capacity %d, limit %d)", vertexCount, cur.vertices.Capacity(), s.config.MaxVertices)
	}
	if !cur.indices.CanAllocate(indexCount) {
		return metadata.InvalidSlot, core.Precondition(core.ErrCapacityExhausted, "no room for %d indices (capacity %d, limit %d)", indexCount, cur.indices.Capacity(), s.config.MaxIndices)
	}

	vertexOffset, err := mirrorAllocate(s.vertexBuffers(), vertexCount)
	if err != nil {
		return metadata.InvalidSlot, err
	}
	indexOffset, err := mirrorAllocate(s.indexBuffers(), indexCount)
	if err != nil {
		return metadata.InvalidSlot, errors.CombineErrors(err, mirrorRelease(s.vertexBuffers(), vertexOffset, vertexCount))
	}

	info := &slotInfo{
		vertexOffset:   vertexOffset,
		vertexCapacity: vertexCount,
		indexOffset:    indexOffset,
		indexCapacity:  indexCount,
	}
	id, generation, err := s.slots.Acquire(info)
	if err != nil {
		err = errors.CombineErrors(err, mirrorRelease(s.vertexBuffers(), vertexOffset, vertexCount))
		return metadata.InvalidSlot, errors.CombineErrors(err, mirrorRelease(s.indexBuffers(), indexOffset, indexCount))
	}
	return metadata.NewSlot(id, generation), nil
}

// DeallocateSlot returns the slot's ranges to every copy's free list. The
// handle is invalid afterwards.
func (s *Store) DeallocateSlot(slot metadata.Slot) error {
	info, err := s.lookup(slot)
	if err != nil {
		return err
	}

	if err := mirrorRelease(s.vertexBuffers(), info.vertexOffset, info.vertexCapacity); err != nil {
		return err
	}
	if err := mirrorRelease(s.indexBuffers(), info.indexOffset, info.indexCapacity); err != nil {
		return err
	}
	return s.slots.Release(slot.Index(), slot.Generation())
}

// UpdateData replaces the whole content of the slot. Indices are local to the
// slot's first vertex. The slot is resized if the data exceeds its capacity.
func (s *Store) UpdateData(slot metadata.Slot, vertices []math.Vertex3D, indices []uint32) error {
	info, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if s.config.Validate {
		if err := checkIndices(indices, len(vertices)); err != nil {
			return err
		}
	}
	if err := s.checkGrowth(info, len(vertices), len(indices)); err != nil {
		return err
	}

	if err := s.growVertices(info, len(vertices)); err != nil {
		return err
	}
	if err := s.growIndices(info, len(indices)); err != nil {
		return err
	}

	s.writeVertices(info.vertexOffset, vertices)
	s.writeIndices(info.indexOffset, indices)
	info.vertexCount = len(vertices)
	info.indexCount = len(indices)
	return nil
}

// UpdateSubData writes vertices and indices at the given local offsets,
// leaving the rest of the slot untouched. The window must lie within the
// slot's capacity. Elements between the previous end of the live data and a
// window starting past it read as zero.
func (s *Store) UpdateSubData(slot metadata.Slot, vertexOffset int, vertices []math.Vertex3D, indexOffset int, indices []uint32) error {
	info, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if vertexOffset < 0 || vertexOffset+len(vertices) > info.vertexCapacity {
		return core.Precondition(core.ErrOutOfRange, "vertex window [%d, %d) exceeds slot capacity %d", vertexOffset, vertexOffset+len(vertices), info.vertexCapacity)
	}
	if indexOffset < 0 || indexOffset+len(indices) > info.indexCapacity {
		return core.Precondition(core.ErrOutOfRange, "index window [%d, %d) exceeds slot capacity %d", indexOffset, indexOffset+len(indices), info.indexCapacity)
	}
	if s.config.Validate {
		if err := checkIndices(indices, info.vertexCapacity); err != nil {
			return err
		}
	}

	if len(vertices) > 0 {
		if vertexOffset > info.vertexCount {
			s.clearVertices(info.vertexOffset+info.vertexCount, vertexOffset-info.vertexCount)
		}
		s.writeVertices(info.vertexOffset+vertexOffset, vertices)
		info.vertexCount = max(info.vertexCount, vertexOffset+len(vertices))
	}
	if len(indices) > 0 {
		if indexOffset > info.indexCount {
			s.clearIndices(info.indexOffset+info.indexCount, indexOffset-info.indexCount)
		}
		s.writeIndices(info.indexOffset+indexOffset, indices)
		info.indexCount = max(info.indexCount, indexOffset+len(indices))
	}
	return nil
}

// ResizeData changes the live element counts of a slot. Shrinking truncates in
// place and hands the tail back to the free lists once the live data takes up
// half the capacity or less. Growing extends in place when the following
// elements are free and relocates the slot otherwise, keeping the live prefix.
// Elements exposed by growing read as zero.
func (s *Store) ResizeData(slot metadata.Slot, vertexCount, indexCount int) error {
	info, err := s.lookup(slot)
	if err != nil {
		return err
	}
	if vertexCount < 0 || indexCount < 0 {
		return core.Precondition(core.ErrOutOfRange, "cannot resize slot to %d vertices and %d indices", vertexCount, indexCount)
	}
	if err := s.checkGrowth(info, vertexCount, indexCount); err != nil {
		return err
	}

	if err := s.resizeVertices(info, vertexCount); err != nil {
		return err
	}
	return s.resizeIndices(info, indexCount)
}

// GetRenderParameters returns a view of the slot in the current frame buffer
// copy. It is valid until the next OnFrameStart or until a buffer grows.
// It only reads, so it may be called from several goroutines while no other
// method runs.
func (s *Store) GetRenderParameters(slot metadata.Slot) (metadata.RenderParameters, error) {
	info, err := s.lookup(slot)
	if err != nil {
		return metadata.RenderParameters{}, err
	}

	cur := s.frames[s.current]
	return metadata.RenderParameters{
		BufferStart: cur.vertices.Data(),
		FirstVertex: uint32(info.vertexOffset),
		IndexBuffer: cur.indices.Data(),
		FirstIndex:  uint32(info.indexOffset),
		IndexCount:  uint32(info.indexCount),
		VertexCount: uint32(info.vertexCount),
	}, nil
}

// OnFrameStart rotates to the next frame buffer copy. It blocks until the sync
// object issued for that copy has completed, then copies every range written
// since the copy was last current from the previous copy.
func (s *Store) OnFrameStart() {
	previous := s.frames[s.current]
	if previous.state == FrameStateWritable {
		previous.state = FrameStateIdle
	}

	s.current = (s.current + 1) % len(s.frames)
	next := s.frames[s.current]

	wait := next.waitForConsumer(s.clock)
	s.lastFenceWait = wait
	if wait > 0 {
		s.fenceWaits++
		s.totalFenceWait += wait
	}
	if wait > s.config.fenceStallWarning() {
		s.fenceStalls++
		core.LogWarn("geometry store %s waited %s for frame buffer %d", s.id, wait, s.current)
	}

	if next != previous {
		vertices, indices := next.syncFrom(previous)
		if vertices > 0 || indices > 0 {
			core.LogDebug("frame buffer %d caught up %d vertices and %d indices", s.current, vertices, indices)
		}
	}
	next.state = FrameStateWritable
	s.frameCount++

	if s.config.Validate {
		if err := s.Validate(); err != nil {
			core.LogError("geometry store %s failed validation: %+v", s.id, err)
		}
	}
}

// OnFrameFinished requests a sync object for the current copy from the
// provider. The copy is not written again until that object has completed.
func (s *Store) OnFrameFinished() {
	cur := s.frames[s.current]
	if s.provider != nil {
		cur.syncObject = s.provider.CreateSyncObject()
	}
	cur.state = FrameStateInFlight
}

// LastFenceWait returns the time the last OnFrameStart spent blocked.
func (s *Store) LastFenceWait() time.Duration {
	return s.lastFenceWait
}

// Validate checks that every copy shares the same consistent allocation layout
// and that the live slots tile exactly the used space.
func (s *Store) Validate() error {
	primary := s.frames[0]
	for i, fb := range s.frames {
		if err := fb.vertices.FreeList().Validate(); err != nil {
			return errors.Wrapf(err, "frame buffer %d vertices", i)
		}
		if err := fb.indices.FreeList().Validate(); err != nil {
			return errors.Wrapf(err, "frame buffer %d indices", i)
		}
		if !fb.vertices.FreeList().Equal(primary.vertices.FreeList()) {
			return errors.AssertionFailedf("frame buffer %d vertex layout differs from frame buffer 0", i)
		}
		if !fb.indices.FreeList().Equal(primary.indices.FreeList()) {
			return errors.AssertionFailedf("frame buffer %d index layout differs from frame buffer 0", i)
		}
	}

	var err error
	usedVertices, usedIndices := 0, 0
	s.slots.Each(func(id, generation uint32, info *slotInfo) {
		if err != nil {
			return
		}
		switch {
		case info.vertexCount > info.vertexCapacity:
			err = errors.AssertionFailedf("slot %d holds %d vertices in a capacity of %d", id, info.vertexCount, info.vertexCapacity)
		case info.indexCount > info.indexCapacity:
			err = errors.AssertionFailedf("slot %d holds %d indices in a capacity of %d", id, info.indexCount, info.indexCapacity)
		case info.vertexOffset+info.vertexCapacity > primary.vertices.Capacity():
			err = errors.AssertionFailedf("slot %d vertex range ends past the buffer", id)
		case info.indexOffset+info.indexCapacity > primary.indices.Capacity():
			err = errors.AssertionFailedf("slot %d index range ends past the buffer", id)
		}
		usedVertices += info.vertexCapacity
		usedIndices += info.indexCapacity
	})
	if err != nil {
		return err
	}
	if used := primary.vertices.FreeList().UsedElements(); used != usedVertices {
		return errors.AssertionFailedf("slots hold %d vertices, free list says %d are used", usedVertices, used)
	}
	if used := primary.indices.FreeList().UsedElements(); used != usedIndices {
		return errors.AssertionFailedf("slots hold %d indices, free list says %d are used", usedIndices, used)
	}
	return nil
}

func (s *Store) lookup(slot metadata.Slot) (*slotInfo, error) {
	if slot == metadata.InvalidSlot {
		return nil, core.Precondition(core.ErrInvalidSlot, "invalid slot handle")
	}
	info, ok := s.slots.Get(slot.Index(), slot.Generation())
	if !ok {
		return nil, core.Precondition(core.ErrInvalidSlot, "slot %d (generation %d) is not allocated", slot.Index(), slot.Generation())
	}
	return info, nil
}

// checkGrowth fails if either range of the slot cannot be grown to the given
// count, so that no partial change is made.
func (s *Store) checkGrowth(info *slotInfo, vertexCount, indexCount int) error {
	cur := s.frames[s.current]
	if vertexCount > info.vertexCapacity &&
		!cur.vertices.CanExtend(info.vertexOffset, info.vertexCapacity, vertexCount) &&
		!cur.vertices.CanAllocate(vertexCount) {
		return core.Precondition(core.ErrCapacityExhausted, "cannot grow slot to %d vertices (limit %d)", vertexCount, s.config.MaxVertices)
	}
	if indexCount > info.indexCapacity &&
		!cur.indices.CanExtend(info.indexOffset, info.indexCapacity, indexCount) &&
		!cur.indices.CanAllocate(indexCount) {
		return core.Precondition(core.ErrCapacityExhausted, "cannot grow slot to %d indices (limit %d)", indexCount, s.config.MaxIndices)
	}
	return nil
}

func (s *Store) resizeVertices(info *slotInfo, n int) error {
	if err := s.growVertices(info, n); err != nil {
		return err
	}
	if n > info.vertexCount {
		s.clearVertices(info.vertexOffset+info.vertexCount, n-info.vertexCount)
	}
	info.vertexCount = n

	if n <= info.vertexCapacity/2 {
		if err := mirrorShrink(s.vertexBuffers(), info.vertexOffset, info.vertexCapacity, n); err != nil {
			return err
		}
		info.vertexCapacity = n
	}
	return nil
}

func (s *Store) resizeIndices(info *slotInfo, n int) error {
	if err := s.growIndices(info, n); err != nil {
		return err
	}
	if n > info.indexCount {
		s.clearIndices(info.indexOffset+info.indexCount, n-info.indexCount)
	}
	info.indexCount = n

	if n <= info.indexCapacity/2 {
		if err := mirrorShrink(s.indexBuffers(), info.indexOffset, info.indexCapacity, n); err != nil {
			return err
		}
		info.indexCapacity = n
	}
	return nil
}

// growVertices makes room for n vertices, in place if possible. The live
// prefix is kept.
func (s *Store) growVertices(info *slotInfo, n int) error {
	if n <= info.vertexCapacity {
		return nil
	}
	buffers := s.vertexBuffers()
	if mirrorExtend(buffers, info.vertexOffset, info.vertexCapacity, n) {
		info.vertexCapacity = n
		return nil
	}

	offset, err := mirrorAllocate(buffers, n)
	if err != nil {
		return err
	}
	s.frames[s.current].vertices.Move(offset, info.vertexOffset, info.vertexCount)
	s.markVertices(offset, info.vertexCount)
	if err := mirrorRelease(buffers, info.vertexOffset, info.vertexCapacity); err != nil {
		return err
	}

	core.LogDebug("slot vertices relocated from %d to %d (%d -> %d)", info.vertexOffset, offset, info.vertexCapacity, n)
	s.relocations++
	info.vertexOffset = offset
	info.vertexCapacity = n
	return nil
}

func (s *Store) growIndices(info *slotInfo, n int) error {
	if n <= info.indexCapacity {
		return nil
	}
	buffers := s.indexBuffers()
	if mirrorExtend(buffers, info.indexOffset, info.indexCapacity, n) {
		info.indexCapacity = n
		return nil
	}

	offset, err := mirrorAllocate(buffers, n)
	if err != nil {
		return err
	}
	s.frames[s.current].indices.Move(offset, info.indexOffset, info.indexCount)
	s.markIndices(offset, info.indexCount)
	if err := mirrorRelease(buffers, info.indexOffset, info.indexCapacity); err != nil {
		return err
	}

	core.LogDebug("slot indices relocated from %d to %d (%d -> %d)", info.indexOffset, offset, info.indexCapacity, n)
	s.relocations++
	info.indexOffset = offset
	info.indexCapacity = n
	return nil
}

func (s *Store) writeVertices(offset int, vertices []math.Vertex3D) {
	s.frames[s.current].vertices.Write(offset, vertices)
	s.markVertices(offset, len(vertices))
}

func (s *Store) writeIndices(offset int, indices []uint32) {
	s.frames[s.current].indices.Write(offset, indices)
	s.markIndices(offset, len(indices))
}

func (s *Store) clearVertices(offset, n int) {
	s.frames[s.current].vertices.Clear(offset, n)
	s.markVertices(offset, n)
}

func (s *Store) clearIndices(offset, n int) {
	s.frames[s.current].indices.Clear(offset, n)
	s.markIndices(offset, n)
}

// markVertices records a write to the current copy in every other copy.
func (s *Store) markVertices(offset, n int) {
	for i, fb := range s.frames {
		if i != s.current {
			fb.markVertices(offset, n)
		}
	}
}

func (s *Store) markIndices(offset, n int) {
	for i, fb := range s.frames {
		if i != s.current {
			fb.markIndices(offset, n)
		}
	}
}

// vertexBuffers returns the vertex buffers of all copies, current first.
func (s *Store) vertexBuffers() []*Buffer[math.Vertex3D] {
	buffers := make([]*Buffer[math.Vertex3D], 0, len(s.frames))
	for i := range s.frames {
		buffers = append(buffers, s.frames[(s.current+i)%len(s.frames)].vertices)
	}
	return buffers
}

// indexBuffers returns the index buffers of all copies, current first.
func (s *Store) indexBuffers() []*Buffer[uint32] {
	buffers := make([]*Buffer[uint32], 0, len(s.frames))
	for i := range s.frames {
		buffers = append(buffers, s.frames[(s.current+i)%len(s.frames)].indices)
	}
	return buffers
}

func checkIndices(indices []uint32, vertexCount int) error {
	for i, idx := range indices {
		if int(idx) >= vertexCount {
			return core.Precondition(core.ErrOutOfRange, "index %d at position %d addresses past %d vertices", idx, i, vertexCount)
		}
	}
	return nil
}

// mirrorAllocate allocates n elements in the first buffer and reserves the
// same range in the others, growing them to the same capacity.
func mirrorAllocate[T any](buffers []*Buffer[T], n int) (int, error) {
	primary := buffers[0]
	offset, err := primary.Allocate(n)
	if err != nil {
		return 0, err
	}
	for _, b := range buffers[1:] {
		if err := b.EnsureCapacity(primary.Capacity()); err != nil {
			return 0, errors.NewAssertionErrorWithWrappedErrf(err, "mirroring %s allocation", b.Kind())
		}
		if err := b.Reserve(offset, n); err != nil {
			return 0, errors.NewAssertionErrorWithWrappedErrf(err, "mirroring %s allocation", b.Kind())
		}
	}
	return offset, nil
}

func mirrorRelease[T any](buffers []*Buffer[T], offset, n int) error {
	for _, b := range buffers {
		if err := b.Release(offset, n); err != nil {
			return err
		}
	}
	return nil
}

func mirrorExtend[T any](buffers []*Buffer[T], offset, n, newN int) bool {
	if !buffers[0].CanExtend(offset, n, newN) {
		return false
	}
	for _, b := range buffers {
		b.TryExtend(offset, n, newN)
	}
	return true
}

func mirrorShrink[T any](buffers []*Buffer[T], offset, n, newN int) error {
	for _, b := range buffers {
		if err := b.Shrink(offset, n, newN); err != nil {
			return err
		}
	}
	return nil
}
