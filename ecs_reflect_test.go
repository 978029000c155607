package nge

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflectSlice(t *testing.T) {
	slice := reflectSliceMake(reflect.TypeOf(testPosition{}))
	assert.Equal(t, 0, reflectSliceLen(slice))

	slice = reflectSliceAppend(slice, reflect.ValueOf(testPosition{X: 1}))
	slice = reflectSliceAppend(slice, reflect.ValueOf(testPosition{X: 2}))
	assert.Equal(t, 2, reflectSliceLen(slice))

	reflectSliceSet(slice, 0, reflect.ValueOf(testPosition{X: 7}))
	assert.Equal(t, testPosition{X: 7}, reflectSliceGet(slice, 0).Interface())

	// Columns are concrete slices so queries can assert them directly.
	typed, ok := slice.([]testPosition)
	assert.True(t, ok)
	assert.Equal(t, float32(2), typed[1].X)
}
