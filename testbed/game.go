package testbed

import (
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/spaghettifunk/geostore/engine/systems"
	"golang.org/x/exp/rand"
)

// TestGame is a soak workload: every frame it allocates, rewrites, resizes and
// releases random slots, and checks that the store still returns exactly what
// was last written for every live slot.
type TestGame struct {
	*engine.Game
}

// shadowSlot is the host copy the store contents are compared against.
type shadowSlot struct {
	slot     metadata.Slot
	vertices []math.Vertex3D
	indices  []uint32
}

// Counters tallies the operations issued so far.
type Counters struct {
	Allocations   int
	Deallocations int
	Updates       int
	SubUpdates    int
	Resizes       int
	Verified      uint64
}

type gameState struct {
	rnd      *rand.Rand
	slots    []*shadowSlot
	counters Counters
	jobs     *systems.JobSystem

	cube   *systems.Renderable
	plane  *systems.Renderable
	path   *systems.Renderable
	static map[*systems.Renderable]*metadata.GeometryConfig
}

func NewTestGame(appConfig *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: appConfig,
			State:             &gameState{},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot() error {
	soak := g.ApplicationConfig.Config.Soak
	core.LogInfo("booting testbed: seed %d, up to %d slots of %d vertices", soak.Seed, soak.MaxSlots, soak.MaxVerticesPerSlot)
	return nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.Renderer == nil {
		return errors.New("the engine has not set up a renderer")
	}

	state := g.state()
	state.rnd = rand.New(rand.NewSource(g.ApplicationConfig.Config.Soak.Seed))

	jobs, err := systems.NewJobSystem(runtime.NumCPU(), runtime.NumCPU())
	if err != nil {
		return err
	}
	state.jobs = jobs
	state.cube = systems.NewRenderable()
	state.plane = systems.NewRenderable()
	state.path = systems.NewRenderable()
	state.static = map[*systems.Renderable]*metadata.GeometryConfig{
		state.cube:  systems.GeometrySystemGenerateCubeConfig(10, 10, 10, 1, 1, "test_cube"),
		state.plane: systems.GeometrySystemGeneratePlaneConfig(20, 20, 4, 4, 2, 2, "test_plane"),
	}
	return nil
}

// Update verifies the fresh frame copy, then mutates the store.
func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	store := g.Renderer.Store()
	frame := g.Renderer.Frame()

	if frame%uint64(g.ApplicationConfig.Config.Soak.VerifyEvery) == 0 {
		if err := g.verify(); err != nil {
			return errors.Wrapf(err, "frame %d", frame)
		}
	}

	// The static geometry is uploaded lazily so that it lands in a started frame.
	for r, config := range state.static {
		if !r.IsResident() {
			if err := r.Update(store, config); err != nil {
				return err
			}
		}
	}

	// The path changes length every frame.
	points := make([]math.Vec3, 2+state.rnd.Intn(30))
	for i := range points {
		points[i] = math.NewVec3(float32(i), float32(frame%17), state.rnd.Float32())
	}
	state.static[state.path] = systems.GenerateVertexArray(points, metadata.GeometryTypeLines, math.NewVec4(1, 1, 0, 1), "test_path")
	if err := state.path.Update(store, state.static[state.path]); err != nil {
		return err
	}

	for op := state.rnd.Intn(6); op > 0; op-- {
		if err := g.randomOperation(); err != nil {
			return err
		}
	}
	return nil
}

func (g *TestGame) Render(packet *metadata.RenderPacket, deltaTime float64) error {
	state := g.state()
	for r := range state.static {
		if err := g.Renderer.Draw(packet, r.Slot(), r.Type); err != nil {
			return err
		}
	}
	for _, s := range state.slots {
		if err := g.Renderer.Draw(packet, s.slot, metadata.GeometryTypeTriangles); err != nil {
			return err
		}
	}
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	if state.jobs != nil {
		state.jobs.Shutdown()
		state.jobs = nil
	}
	if g.Renderer == nil {
		return nil
	}
	// Release only inside a frame; the engine may stop between frames.
	g.Renderer.BeginFrame(0)

	var err error
	for _, s := range state.slots {
		err = errors.CombineErrors(err, g.Renderer.Store().DeallocateSlot(s.slot))
	}
	state.slots = nil
	for r := range state.static {
		err = errors.CombineErrors(err, r.Clear(g.Renderer.Store()))
	}

	c := state.counters
	core.LogInfo("testbed finished: %d allocations, %d deallocations, %d updates, %d sub updates, %d resizes, %d slot checks",
		c.Allocations, c.Deallocations, c.Updates, c.SubUpdates, c.Resizes, c.Verified)
	return err
}

// Counters returns the operations issued so far.
func (g *TestGame) Counters() Counters {
	return g.state().counters
}

// verifyChunk is the number of slots one verification job checks.
const verifyChunk = 8

// verify compares every live slot with its shadow copy. Only reads happen
// here, so the slots are split across the job system.
func (g *TestGame) verify() error {
	state := g.state()
	store := g.Renderer.Store()

	var verified atomic.Uint64
	var jobs []func() error
	for chunk := range slices.Chunk(state.slots, verifyChunk) {
		jobs = append(jobs, func() error {
			for _, s := range chunk {
				rp, err := store.GetRenderParameters(s.slot)
				if err != nil {
					return err
				}
				if !slices.Equal(rp.Vertices(), s.vertices) {
					return errors.AssertionFailedf("slot %d: vertices differ from the last write", s.slot.Index())
				}
				if !slices.Equal(rp.Indices(), s.indices) {
					return errors.AssertionFailedf("slot %d: indices differ from the last write", s.slot.Index())
				}
				verified.Add(1)
			}
			return nil
		})
	}
	err := state.jobs.RunAll(jobs...)
	state.counters.Verified += verified.Load()
	return err
}

func (g *TestGame) randomOperation() error {
	state := g.state()
	store := g.Renderer.Store()
	soak := g.ApplicationConfig.Config.Soak

	if len(state.slots) == 0 {
		return g.allocate()
	}
	s := state.slots[state.rnd.Intn(len(state.slots))]

	switch state.rnd.Intn(5) {
	case 0:
		if len(state.slots) >= soak.MaxSlots {
			return nil
		}
		return g.allocate()

	case 1:
		state.counters.Deallocations++
		state.slots = slices.DeleteFunc(state.slots, func(other *shadowSlot) bool { return other == s })
		return store.DeallocateSlot(s.slot)

	case 2:
		state.counters.Updates++
		s.vertices, s.indices = generateMesh(state.rnd, 1+state.rnd.Intn(soak.MaxVerticesPerSlot))
		return store.UpdateData(s.slot, s.vertices, s.indices)

	case 3:
		if len(s.vertices) == 0 || len(s.indices) == 0 {
			return nil
		}
		state.counters.SubUpdates++
		vOff := state.rnd.Intn(len(s.vertices))
		vertices := generateVertices(state.rnd, 1+state.rnd.Intn(len(s.vertices)-vOff))
		iOff := state.rnd.Intn(len(s.indices))
		indices := generateIndices(state.rnd, len(s.vertices))[:1+state.rnd.Intn(len(s.indices)-iOff)]
		copy(s.vertices[vOff:], vertices)
		copy(s.indices[iOff:], indices)
		return store.UpdateSubData(s.slot, vOff, vertices, iOff, indices)

	default:
		state.counters.Resizes++
		vertexCount := 1 + state.rnd.Intn(soak.MaxVerticesPerSlot)
		indexCount := state.rnd.Intn(3 * vertexCount)
		if err := store.ResizeData(s.slot, vertexCount, indexCount); err != nil {
			return err
		}
		s.vertices = resized(s.vertices, vertexCount)
		s.indices = resized(s.indices, indexCount)
		if slices.ContainsFunc(s.indices, func(idx uint32) bool { return int(idx) >= vertexCount }) {
			// Shrinking left indices past the end; point them back inside.
			s.indices = generateIndices(state.rnd, vertexCount)[:indexCount]
			return store.UpdateSubData(s.slot, 0, nil, 0, s.indices)
		}
		return nil
	}
}

func (g *TestGame) allocate() error {
	state := g.state()
	store := g.Renderer.Store()

	vertices, indices := generateMesh(state.rnd, 1+state.rnd.Intn(g.ApplicationConfig.Config.Soak.MaxVerticesPerSlot))
	slot, err := store.AllocateSlot(len(vertices), len(indices))
	if err != nil {
		return err
	}
	state.counters.Allocations++
	state.slots = append(state.slots, &shadowSlot{slot: slot, vertices: vertices, indices: indices})
	return store.UpdateData(slot, vertices, indices)
}

func generateVertices(rnd *rand.Rand, n int) []math.Vertex3D {
	vertices := make([]math.Vertex3D, n)
	for i := range vertices {
		vertices[i].Position = math.NewVec3(rnd.Float32(), rnd.Float32(), rnd.Float32())
		vertices[i].Texcoord = math.NewVec2(rnd.Float32(), rnd.Float32())
	}
	return vertices
}

// generateMesh produces n random vertices and a triangle list over them with
// face normals filled in.
func generateMesh(rnd *rand.Rand, n int) ([]math.Vertex3D, []uint32) {
	vertices := generateVertices(rnd, n)
	indices := generateIndices(rnd, n)
	math.GeometryGenerateNormals(vertices, indices)
	return vertices, indices
}

// generateIndices produces three indices per vertex, all addressing one of the n vertices.
func generateIndices(rnd *rand.Rand, n int) []uint32 {
	indices := make([]uint32, 3*n)
	for i := range indices {
		indices[i] = uint32(rnd.Intn(n))
	}
	return indices
}

// resized truncates or zero-extends s to n elements, the way the store does.
func resized[T any](s []T, n int) []T {
	if n <= len(s) {
		return s[:n]
	}
	return append(s, make([]T, n-len(s))...)
}
