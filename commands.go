package nge

import (
	"reflect"
)

// Commands is the handle systems and states use to touch the world.
// Structural changes are buffered and applied when the current stage ends
// (or on Flush); reads and component mutation through queries are immediate.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// RemoveResource drops the resource of the same type as the argument.
func (cmd *Commands) RemoveResource(resource any) bool {
	return cmd.app.removeResource(reflect.TypeOf(resource))
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompRemoval{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

// Flush applies every buffered structural change now.
func (cmd *Commands) Flush() {
	cmd.app.FlushCommands()
}

func (cmd *Commands) HasEntity(entityId EntityId) bool {
	return cmd.app.ecs.hasEntity(entityId)
}

// EntityCount counts live, flushed entities.
func (cmd *Commands) EntityCount() int {
	return cmd.app.ecs.entityCount()
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex.Get(entityId)
	if !ok {
		return nil
	}
	arch := ecs.archetypes[archId]

	row := arch.entities[entityId]

	var res []any
	for _, componentId := range arch.key {
		val := reflectSliceGet(arch.componentData[componentId], int(row))
		res = append(res, val.Interface())
	}
	return res
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}

// GetComponent returns a pointer to entityId's T component, valid until the
// next flush.
func GetComponent[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	return getComponent[T](cmd.app.ecs, entityId)
}

// Resource looks up a resource by type.
func Resource[T any](cmd *Commands) (*T, bool) {
	var zero T
	res, ok := cmd.app.resources[reflect.TypeOf(zero)]
	if !ok {
		return nil, false
	}
	return res.(*T), true
}
