package nge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_MapVisitsMatchingEntities(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	a := cmd.AddEntity(testPosition{X: 1})
	b := cmd.AddEntity(testPosition{X: 2}, testVelocity{DX: 1})
	cmd.AddEntity(testVelocity{DX: 3})
	cmd.Flush()

	var seen []EntityId
	MakeQuery1[testPosition](cmd).Map(func(eid EntityId, pos *testPosition) bool {
		seen = append(seen, eid)
		return true
	})
	assert.ElementsMatch(t, []EntityId{a, b}, seen)

	seen = nil
	MakeQuery2[testPosition, testVelocity](cmd).Map(func(eid EntityId, pos *testPosition, vel *testVelocity) bool {
		seen = append(seen, eid)
		return true
	})
	assert.Equal(t, []EntityId{b}, seen)
}

func TestQuery_MutationThroughPointer(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	eid := cmd.AddEntity(testPosition{X: 1}, testVelocity{DX: 2, DY: 3})
	cmd.Flush()

	MakeQuery2[testPosition, testVelocity](cmd).Map(func(_ EntityId, pos *testPosition, vel *testVelocity) bool {
		pos.X += vel.DX
		pos.Y += vel.DY
		return true
	})

	pos, ok := GetComponent[testPosition](cmd, eid)
	require.True(t, ok)
	assert.Equal(t, testPosition{X: 3, Y: 3}, *pos)
}

func TestQuery_Optionals(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	plain := cmd.AddEntity(testPosition{X: 1})
	moving := cmd.AddEntity(testPosition{X: 2}, testVelocity{DX: 1})
	cmd.Flush()

	got := map[EntityId]bool{}
	MakeQuery2[testPosition, testVelocity](cmd).Map(func(eid EntityId, pos *testPosition, vel *testVelocity) bool {
		require.NotNil(t, pos)
		got[eid] = vel != nil
		return true
	}, testVelocity{})

	assert.Equal(t, map[EntityId]bool{plain: false, moving: true}, got)
}

func TestQuery_Without(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	kept := cmd.AddEntity(testPosition{})
	cmd.AddEntity(testPosition{}, testTag{})
	cmd.Flush()

	var seen []EntityId
	MakeQuery1[testPosition](cmd).Without(testTag{}).Map(func(eid EntityId, _ *testPosition) bool {
		seen = append(seen, eid)
		return true
	})
	assert.Equal(t, []EntityId{kept}, seen)
}

func TestQuery_StopsWhenMapperReturnsFalse(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	for i := 0; i < 5; i++ {
		cmd.AddEntity(testPosition{X: float32(i)})
	}
	cmd.Flush()

	visits := 0
	MakeQuery1[testPosition](cmd).Map(func(EntityId, *testPosition) bool {
		visits++
		return visits < 2
	})
	assert.Equal(t, 2, visits)
}

func TestQuery_IterationOrderIsStable(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	var want []EntityId
	for i := 0; i < 8; i++ {
		if i%2 == 0 {
			want = append(want, cmd.AddEntity(testPosition{X: float32(i)}))
		} else {
			want = append(want, cmd.AddEntity(testPosition{X: float32(i)}, testTag{}))
		}
	}
	cmd.Flush()

	collect := func() []EntityId {
		var ids []EntityId
		MakeQuery1[testPosition](cmd).Map(func(eid EntityId, _ *testPosition) bool {
			ids = append(ids, eid)
			return true
		})
		return ids
	}

	first := collect()
	// Archetypes in creation order, rows in insertion order.
	assert.Equal(t, []EntityId{want[0], want[2], want[4], want[6], want[1], want[3], want[5], want[7]}, first)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, collect())
	}
}

func TestQuery_SkipsRemovedRows(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	a := cmd.AddEntity(testPosition{X: 1})
	b := cmd.AddEntity(testPosition{X: 2})
	cmd.Flush()
	cmd.RemoveEntity(a)
	cmd.Flush()

	var seen []EntityId
	MakeQuery1[testPosition](cmd).Map(func(eid EntityId, _ *testPosition) bool {
		seen = append(seen, eid)
		return true
	})
	assert.Equal(t, []EntityId{b}, seen)
}
