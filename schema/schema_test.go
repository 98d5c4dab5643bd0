package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
	"github.com/vedmalex/collection-store-sub005/schema"
)

func TestValidateRequiredAndDefault(t *testing.T) {
	s := schema.Schema{
		"name": {Type: []bsonvalue.Tag{bsonvalue.TagString}, Required: true},
		"age":  {Type: []bsonvalue.Tag{bsonvalue.TagInt}, Default: int64(0)},
	}

	res := s.Validate(bson.M{"name": "Ada"})
	require.True(t, res.Valid)
	assert.Equal(t, int64(0), res.ProcessedDoc["age"])

	res = s.Validate(bson.M{"age": int64(5)})
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
}

func TestValidateCoercesStringToInt(t *testing.T) {
	s := schema.Schema{"count": {Type: []bsonvalue.Tag{bsonvalue.TagInt}}}
	res := s.Validate(bson.M{"count": "42"})
	require.True(t, res.Valid)
	assert.Equal(t, int64(42), res.ProcessedDoc["count"])
}

func TestValidateStrictTypeMismatchFails(t *testing.T) {
	s := schema.Schema{"count": {Type: []bsonvalue.Tag{bsonvalue.TagInt}, CoerceSet: true, Coerce: false}}
	res := s.Validate(bson.M{"count": "not a number"})
	assert.False(t, res.Valid)
}

func TestValidateRunsCustomValidator(t *testing.T) {
	s := schema.Schema{
		"age": {Type: []bsonvalue.Tag{bsonvalue.TagInt}, Validator: func(v any) error {
			if v.(int64) < 0 {
				return errors.New("must be non-negative")
			}
			return nil
		}},
	}
	res := s.Validate(bson.M{"age": int64(-1)})
	assert.False(t, res.Valid)
}

func TestCompatibleOperator(t *testing.T) {
	assert.True(t, schema.CompatibleOperator(bsonvalue.TagInt, "$bitsAllSet"))
	assert.False(t, schema.CompatibleOperator(bsonvalue.TagString, "$bitsAllSet"))
	assert.True(t, schema.CompatibleOperator(bsonvalue.TagString, "$regex"))
	assert.False(t, schema.CompatibleOperator(bsonvalue.TagInt, "$regex"))
}

func TestValidateQueryWarnsInNonStrictMode(t *testing.T) {
	s := schema.Schema{"name": {Type: []bsonvalue.Tag{bsonvalue.TagString}}}
	warnings, err := s.ValidateQuery(bson.M{"name": bson.M{"$bitsAllSet": 1}})
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
}

func TestValidateQueryErrorsInStrictMode(t *testing.T) {
	s := schema.Schema{"name": {Type: []bsonvalue.Tag{bsonvalue.TagString}, Strict: true}}
	_, err := s.ValidateQuery(bson.M{"name": bson.M{"$bitsAllSet": 1}})
	require.Error(t, err)
}

func TestInferCollectsUnionOfTags(t *testing.T) {
	sample := []bson.M{
		{"age": int64(30)},
		{"age": "thirty"},
	}
	inferred := schema.Infer(sample)
	require.Contains(t, inferred, "age")
	assert.ElementsMatch(t, []bsonvalue.Tag{bsonvalue.TagInt, bsonvalue.TagString}, inferred["age"].Type)
}
