package nge

// Queries walk archetypes in creation order and rows in storage order, so
// two runs over an unchanged world visit entities identically.
//
// To get more queries:
//  1. Add QueryN and MakeQueryN
//  2. Add identifyComponentsN
//  3. Copy MapN-1() and extend it with the new column
type Query1[A any] struct {
	ecs     *Ecs
	exclude []any
}

type Query2[A, B any] struct {
	ecs     *Ecs
	exclude []any
}

type Query3[A, B, C any] struct {
	ecs     *Ecs
	exclude []any
}

type Query4[A, B, C, D any] struct {
	ecs     *Ecs
	exclude []any
}

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

// Without skips every archetype holding any of the given component types.
func (q Query1[A]) Without(types ...any) Query1[A] {
	q.exclude = append(append([]any{}, q.exclude...), types...)
	return q
}

func (q Query2[A, B]) Without(types ...any) Query2[A, B] {
	q.exclude = append(append([]any{}, q.exclude...), types...)
	return q
}

func (q Query3[A, B, C]) Without(types ...any) Query3[A, B, C] {
	q.exclude = append(append([]any{}, q.exclude...), types...)
	return q
}

func (q Query4[A, B, C, D]) Without(types ...any) Query4[A, B, C, D] {
	q.exclude = append(append([]any{}, q.exclude...), types...)
	return q
}

// column resolves one query argument against an archetype.
// ok is false when the archetype cannot match; present is false for a missing optional.
func column[T any](arch *archetype, id componentId, opt set[componentId]) (comps []T, present bool, ok bool) {
	if data, found := arch.componentData[id]; found {
		return data.([]T), true, true
	}
	if _, optional := opt[id]; optional {
		return nil, false, true
	}
	return nil, false, false
}

func at[T any](comps []T, present bool, r int) *T {
	if !present {
		return nil
	}
	return &comps[r]
}

func excluded(arch *archetype, ex set[componentId]) bool {
	for id := range ex {
		if _, ok := arch.componentData[id]; ok {
			return true
		}
	}
	return false
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponents1[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)
	ex := identifyOptionals(q.ecs, q.exclude...)

	for _, arch := range q.ecs.archetypeOrder {
		if excluded(arch, ex) {
			continue
		}
		comps1, has1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.rows {
			if entityId == deadEntity {
				continue
			}
			if !m(entityId, at(comps1, has1, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)
	ex := identifyOptionals(q.ecs, q.exclude...)

	for _, arch := range q.ecs.archetypeOrder {
		if excluded(arch, ex) {
			continue
		}
		comps1, has1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, has2, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.rows {
			if entityId == deadEntity {
				continue
			}
			if !m(entityId, at(comps1, has1, r), at(comps2, has2, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := identifyComponents3[A, B, C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)
	ex := identifyOptionals(q.ecs, q.exclude...)

	for _, arch := range q.ecs.archetypeOrder {
		if excluded(arch, ex) {
			continue
		}
		comps1, has1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, has2, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, has3, ok := column[C](arch, id3, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.rows {
			if entityId == deadEntity {
				continue
			}
			if !m(entityId, at(comps1, has1, r), at(comps2, has2, r), at(comps3, has3, r)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	id1, id2, id3, id4 := identifyComponents4[A, B, C, D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)
	ex := identifyOptionals(q.ecs, q.exclude...)

	for _, arch := range q.ecs.archetypeOrder {
		if excluded(arch, ex) {
			continue
		}
		comps1, has1, ok := column[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, has2, ok := column[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, has3, ok := column[C](arch, id3, opt)
		if !ok {
			continue
		}
		comps4, has4, ok := column[D](arch, id4, opt)
		if !ok {
			continue
		}

		for r, entityId := range arch.rows {
			if entityId == deadEntity {
				continue
			}
			if !m(entityId, at(comps1, has1, r), at(comps2, has2, r), at(comps3, has3, r), at(comps4, has4, r)) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, optionals ...any) set[componentId] {
	res := make(set[componentId], len(optionals))
	for _, o := range optionals {
		res[ecs.registry.id(componentTypeOf(o))] = struct{}{}
	}
	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	return componentIdOf[A](ecs)
}

func identifyComponents2[A, B any](ecs *Ecs) (componentId, componentId) {
	return componentIdOf[A](ecs), componentIdOf[B](ecs)
}

func identifyComponents3[A, B, C any](ecs *Ecs) (componentId, componentId, componentId) {
	return componentIdOf[A](ecs), componentIdOf[B](ecs), componentIdOf[C](ecs)
}

func identifyComponents4[A, B, C, D any](ecs *Ecs) (componentId, componentId, componentId, componentId) {
	return componentIdOf[A](ecs), componentIdOf[B](ecs), componentIdOf[C](ecs), componentIdOf[D](ecs)
}
