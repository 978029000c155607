package nge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPosition struct {
	X, Y float32
}

type testVelocity struct {
	DX, DY float32
}

type testTag struct{}

func TestEcs_MakeEcs(t *testing.T) {
	ecs := MakeEcs()

	if len(ecs.archetypes) != 0 {
		t.Errorf("Expected archetypes to be empty, got %v", ecs.archetypes)
	}
	if ecs.entityIndex.Len() != 0 {
		t.Errorf("Expected entityIndex to be empty, got %d entries", ecs.entityIndex.Len())
	}
	if ecs.nextId != 0 {
		t.Errorf("Expected nextId to be 0, got %v", ecs.nextId)
	}
}

func TestEcs_AddEntity(t *testing.T) {
	ecs := MakeEcs()

	bare := ecs.addEntity()
	withPos := ecs.addEntity(testPosition{X: 1})

	archBare, ok := ecs.entityIndex.Get(bare)
	require.True(t, ok)
	archPos, ok := ecs.entityIndex.Get(withPos)
	require.True(t, ok)
	assert.NotEqual(t, archBare, archPos, "entities with different components share an archetype")

	pos, ok := getComponent[testPosition](ecs, withPos)
	require.True(t, ok)
	assert.Equal(t, float32(1), pos.X)
	assert.Equal(t, 2, ecs.entityCount())
}

func TestEcs_PointerComponentsStoreValues(t *testing.T) {
	ecs := MakeEcs()

	p := &testPosition{X: 3}
	eid := ecs.addEntity(p)
	p.X = 99

	stored, ok := getComponent[testPosition](ecs, eid)
	require.True(t, ok)
	assert.Equal(t, float32(3), stored.X)
}

func TestEcs_AddComponents(t *testing.T) {
	ecs := MakeEcs()

	eid := ecs.addEntity(testPosition{X: 1, Y: 2})
	ecs.addComponents(eid, testVelocity{DX: 5})

	pos, ok := getComponent[testPosition](ecs, eid)
	require.True(t, ok, "position lost while changing archetype")
	assert.Equal(t, testPosition{X: 1, Y: 2}, *pos)

	vel, ok := getComponent[testVelocity](ecs, eid)
	require.True(t, ok)
	assert.Equal(t, float32(5), vel.DX)

	// Same archetype: overwrite in place.
	ecs.addComponents(eid, testVelocity{DX: 6})
	vel, _ = getComponent[testVelocity](ecs, eid)
	assert.Equal(t, float32(6), vel.DX)
	assert.Equal(t, 1, ecs.entityCount())
}

func TestEcs_RemoveComponents(t *testing.T) {
	ecs := MakeEcs()

	eid := ecs.addEntity(testPosition{X: 1}, testVelocity{DX: 2})
	ecs.removeComponents(eid, testVelocity{})

	_, ok := getComponent[testVelocity](ecs, eid)
	assert.False(t, ok)
	pos, ok := getComponent[testPosition](ecs, eid)
	require.True(t, ok)
	assert.Equal(t, float32(1), pos.X)

	// Removing something the entity doesn't have is a no-op.
	ecs.removeComponents(eid, &testTag{})
	assert.True(t, ecs.hasEntity(eid))
}

func TestEcs_RemoveEntity(t *testing.T) {
	ecs := MakeEcs()

	a := ecs.addEntity(testPosition{X: 1})
	b := ecs.addEntity(testPosition{X: 2})
	ecs.removeEntity(a)

	assert.False(t, ecs.hasEntity(a))
	assert.True(t, ecs.hasEntity(b))
	assert.Equal(t, 1, ecs.entityCount())

	// Removing twice is harmless.
	ecs.removeEntity(a)
	assert.Equal(t, 1, ecs.entityCount())

	// The freed row is reused and b keeps its data.
	c := ecs.addEntity(testPosition{X: 3})
	pos, _ := getComponent[testPosition](ecs, b)
	assert.Equal(t, float32(2), pos.X)
	pos, _ = getComponent[testPosition](ecs, c)
	assert.Equal(t, float32(3), pos.X)
	assert.NotEqual(t, a, c, "entity ids are never reused")
}

func TestEcs_RejectsNonStructComponents(t *testing.T) {
	ecs := MakeEcs()

	assert.Panics(t, func() { ecs.addEntity(42) })
	assert.Panics(t, func() { ecs.addEntity(nil) })
}

func TestComponentRegistry(t *testing.T) {
	ecs := MakeEcs()

	a := componentIdOf[testPosition](ecs)
	b := componentIdOf[testVelocity](ecs)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ecs.registry.id(componentTypeOf(&testPosition{})))
	assert.Equal(t, "testVelocity", ecs.registry.typeOf(b).Name())
	assert.Panics(t, func() { ecs.registry.typeOf(99) })
}

func TestEcs_ArchetypeKeyIsOrderIndependent(t *testing.T) {
	ecs := MakeEcs()

	k1 := ecs.getArchetypeKey(testPosition{}, testVelocity{})
	k2 := ecs.getArchetypeKey(testVelocity{}, testPosition{}, testVelocity{})
	assert.Equal(t, k1, k2)
	assert.Equal(t, getArchetypeId(k1), getArchetypeId(k2))
}
