package nge

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"

	"github.com/kamstrup/intmap"
)

type EntityId uint64
type archetypeId uint64
type archetypeKey []componentId
type componentId uint32
type row int
type set[T comparable] = map[T]struct{}

// deadEntity marks a recycled row in archetype.rows.
const deadEntity = ^EntityId(0)

// componentRegistry hands out dense ids for component types.
type componentRegistry struct {
	mu     sync.Mutex
	byType map[reflect.Type]componentId
	types  []reflect.Type
}

func (r *componentRegistry) id(t reflect.Type) componentId {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byType[t]; ok {
		return id
	}
	id := componentId(len(r.types))
	r.byType[t] = id
	r.types = append(r.types, t)
	return id
}

func (r *componentRegistry) typeOf(id componentId) reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(id) >= len(r.types) {
		panic(fmt.Sprintf("component id %d not registered", id))
	}
	return r.types[id]
}

func componentIdOf[T any](ecs *Ecs) componentId {
	return ecs.registry.id(reflect.TypeFor[T]())
}

// componentTypeOf resolves a component value or pointer to its struct type.
func componentTypeOf(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		panic("component should be a struct, got nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("component should be a struct or a pointer to a struct, got %s", t))
	}
	return t
}

type Ecs struct {
	archetypes     map[archetypeId]*archetype
	archetypeOrder []*archetype
	entityIndex    *intmap.Map[EntityId, archetypeId]
	registry       componentRegistry

	idLock sync.Mutex
	nextId EntityId
}

func MakeEcs() *Ecs {
	return &Ecs{
		archetypes:  make(map[archetypeId]*archetype),
		entityIndex: intmap.New[EntityId, archetypeId](256),
		registry:    componentRegistry{byType: make(map[reflect.Type]componentId)},
	}
}

// archetype stores all entities sharing one exact component set.
// Rows are iterated in order; rows[r] == deadEntity for recycled rows.
type archetype struct {
	id            archetypeId
	key           archetypeKey
	entities      map[EntityId]row
	rows          []EntityId
	componentData map[componentId]any // typed slices via reflection
	recycled      []row
}

func (ecs *Ecs) addEntity(components ...any) EntityId {
	return ecs.insertEntity(ecs.nextEntityId(), components...)
}

// insertEntity places an entity whose id was allocated earlier, as the
// command buffer does.
func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	archId, arch := ecs.getOrMakeArchetype(ecs.getArchetypeKey(components...))

	r := ecs.archetypeReserveRow(arch)
	ecs.place(entityId, archId, arch, r)
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}
	return entityId
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	if !ecs.hasEntity(entityId) {
		return
	}
	ecs.recycleEntity(entityId)
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entityIndex.Get(entityId)
	return ok
}

func (ecs *Ecs) entityCount() int {
	return ecs.entityIndex.Len()
}

// addComponents adds or overwrites components, moving the entity to a
// wider archetype when needed.
func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	srcArchId, ok := ecs.entityIndex.Get(entityId)
	if !ok {
		return
	}
	srcArch := ecs.archetypes[srcArchId]

	dstKey := combineArchetypeKeys(srcArch.key, ecs.getArchetypeKey(components...))
	arch, r := ecs.migrate(entityId, srcArch, dstKey)
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	srcArchId, ok := ecs.entityIndex.Get(entityId)
	if !ok {
		return
	}
	srcArch := ecs.archetypes[srcArchId]

	drop := make(set[componentId], len(components))
	for _, c := range components {
		drop[ecs.registry.id(componentTypeOf(c))] = struct{}{}
	}
	dstKey := make(archetypeKey, 0, len(srcArch.key))
	for _, id := range srcArch.key {
		if _, ok := drop[id]; !ok {
			dstKey = append(dstKey, id)
		}
	}
	ecs.migrate(entityId, srcArch, dstKey)
}

// migrate moves an entity into the archetype for dstKey, carrying over the
// components both archetypes share, and returns where it now lives.
func (ecs *Ecs) migrate(entityId EntityId, srcArch *archetype, dstKey archetypeKey) (*archetype, row) {
	srcRow := srcArch.entities[entityId]
	if slices.Equal(srcArch.key, dstKey) {
		return srcArch, srcRow
	}

	dstArchId, dstArch := ecs.getOrMakeArchetype(dstKey)
	dstRow := ecs.archetypeReserveRow(dstArch)
	for _, id := range srcArch.key {
		if dstData, ok := dstArch.componentData[id]; ok {
			reflectSliceSet(dstData, int(dstRow), reflectSliceGet(srcArch.componentData[id], int(srcRow)))
		}
	}

	ecs.recycleEntity(entityId)
	ecs.place(entityId, dstArchId, dstArch, dstRow)
	return dstArch, dstRow
}

func (ecs *Ecs) place(entityId EntityId, archId archetypeId, arch *archetype, r row) {
	arch.entities[entityId] = r
	arch.rows[r] = entityId
	ecs.entityIndex.Put(entityId, archId)
}

func (ecs *Ecs) writeComponent(dstArch *archetype, dstRow row, component any) {
	value := reflect.ValueOf(component)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	id := ecs.registry.id(componentTypeOf(component))
	reflectSliceSet(dstArch.componentData[id], int(dstRow), value)
}

// recycleEntity frees the entity's row and drops it from the index.
func (ecs *Ecs) recycleEntity(entityId EntityId) {
	archId, _ := ecs.entityIndex.Get(entityId)
	arch := ecs.archetypes[archId]

	r := arch.entities[entityId]
	arch.recycled = append(arch.recycled, r)
	arch.rows[r] = deadEntity

	// Zero the slot so removed components don't keep references alive.
	for id, data := range arch.componentData {
		reflectSliceSet(data, int(r), reflect.Zero(ecs.registry.typeOf(id)))
	}

	delete(arch.entities, entityId)
	ecs.entityIndex.Del(entityId)
}

func (ecs *Ecs) getOrMakeArchetype(key archetypeKey) (archetypeId, *archetype) {
	id := getArchetypeId(key)
	if arch, ok := ecs.archetypes[id]; ok {
		return id, arch
	}

	arch := &archetype{
		id:            id,
		key:           key,
		entities:      make(map[EntityId]row),
		componentData: make(map[componentId]any, len(key)),
	}
	for _, componentId := range key {
		arch.componentData[componentId] = reflectSliceMake(ecs.registry.typeOf(componentId))
	}

	ecs.archetypes[id] = arch
	ecs.archetypeOrder = append(ecs.archetypeOrder, arch)
	return id, arch
}

// archetypeReserveRow reuses a recycled row, or grows every column by one.
func (ecs *Ecs) archetypeReserveRow(arch *archetype) row {
	if n := len(arch.recycled); n > 0 {
		r := arch.recycled[n-1]
		arch.recycled = arch.recycled[:n-1]
		return r
	}

	r := row(len(arch.rows))
	arch.rows = append(arch.rows, deadEntity)
	for _, componentId := range arch.key {
		arch.componentData[componentId] = reflectSliceAppend(
			arch.componentData[componentId],
			reflect.Zero(ecs.registry.typeOf(componentId)),
		)
	}
	return r
}

// getArchetypeKey is the sorted, deduplicated set of component ids; the
// archetype id is a hash of it.
func (ecs *Ecs) getArchetypeKey(components ...any) archetypeKey {
	key := make(archetypeKey, 0, len(components))
	for _, component := range components {
		key = append(key, ecs.registry.id(componentTypeOf(component)))
	}
	return dedupAndSortArchetypeKey(key)
}

func combineArchetypeKeys(a archetypeKey, b archetypeKey) archetypeKey {
	combined := make(archetypeKey, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return dedupAndSortArchetypeKey(combined)
}

func dedupAndSortArchetypeKey(key archetypeKey) archetypeKey {
	slices.Sort(key)
	return slices.Compact(key)
}

func getArchetypeId(key archetypeKey) archetypeId {
	hash := fnv.New64a()
	var b [8]byte
	for _, componentId := range key {
		binary.LittleEndian.PutUint64(b[:], uint64(componentId))
		hash.Write(b[:])
	}
	return archetypeId(hash.Sum64())
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idLock.Lock()
	defer ecs.idLock.Unlock()

	id := ecs.nextId
	ecs.nextId++
	return id
}

// getComponent returns a pointer into the storage of T for entityId.
// The pointer is valid until the entity changes archetype.
func getComponent[T any](ecs *Ecs, entityId EntityId) (*T, bool) {
	archId, ok := ecs.entityIndex.Get(entityId)
	if !ok {
		return nil, false
	}
	arch := ecs.archetypes[archId]

	data, ok := arch.componentData[componentIdOf[T](ecs)]
	if !ok {
		return nil, false
	}
	comps := data.([]T)
	return &comps[arch.entities[entityId]], true
}
