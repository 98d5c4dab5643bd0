package bsonvalue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

func TestCompareTypeOrder(t *testing.T) {
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(nil, 1))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(1, "a"))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare("a", []any{1}))
	assert.Equal(t, bsonvalue.Greater, bsonvalue.Compare(true, 1.0))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(false, true))
}

func TestCompareNumericPromotion(t *testing.T) {
	assert.Equal(t, bsonvalue.Equal, bsonvalue.Compare(int32(5), 5.0))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(int64(4), 5.0))
}

func TestCompareNaN(t *testing.T) {
	nan := 0.0
	nan /= 0
	nan -= nan // NaN
	assert.Equal(t, bsonvalue.Equal, bsonvalue.Compare(nan, nan))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(nan, 1.0))
}

func TestCompareUndefinedIncomparable(t *testing.T) {
	assert.Equal(t, bsonvalue.Incomparable, bsonvalue.Compare(bsonvalue.Undefined{}, 1))
	assert.Equal(t, bsonvalue.Equal, bsonvalue.Compare(bsonvalue.Undefined{}, bsonvalue.Undefined{}))
}

func TestCompareArraysElementwise(t *testing.T) {
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare([]any{1, 2}, []any{1, 3}))
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare([]any{1}, []any{1, 2}))
}

func TestCompareDates(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Second)
	assert.Equal(t, bsonvalue.Less, bsonvalue.Compare(now, later))
}

func TestDeepEqualObjectsStructural(t *testing.T) {
	a := map[string]any{"x": 1, "y": []any{1, 2}}
	b := map[string]any{"x": 1, "y": []any{1, 2}}
	assert.True(t, bsonvalue.DeepEqual(a, b))

	c := map[string]any{"x": 1, "y": []any{1, 3}}
	assert.False(t, bsonvalue.DeepEqual(a, c))
}

func TestDeepEqualRegex(t *testing.T) {
	a := primitive.Regex{Pattern: "^a", Options: "i"}
	b := primitive.Regex{Pattern: "^a", Options: "i"}
	assert.True(t, bsonvalue.DeepEqual(a, b))
}

func TestCompareOrderingButNotEqualityForObjects(t *testing.T) {
	a := map[string]any{"x": 1}
	b := map[string]any{"x": 2}
	assert.Equal(t, bsonvalue.Equal, bsonvalue.Compare(a, b))
	assert.False(t, bsonvalue.DeepEqual(a, b))
}
