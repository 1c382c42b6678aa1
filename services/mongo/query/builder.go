package query

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
)

// Builder accumulates a Mongo filter document.
type Builder struct {
	filter bson.M
}

func NewBuilder() *Builder {
	return &Builder{filter: bson.M{}}
}

func (b *Builder) Where(key string, value interface{}) *Builder {
	b.filter[key] = value
	return b
}

func (b *Builder) WhereIn(key string, values []interface{}) *Builder {
	b.filter[key] = bson.M{"$in": values}
	return b
}

// WhereAnyRegex matches documents where any of the keys contains the literal
// substring, case-insensitively.
func (b *Builder) WhereAnyRegex(keys []string, substring string) *Builder {
	pattern := regexp.QuoteMeta(substring)
	clauses := make([]bson.M, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, bson.M{key: bson.M{"$regex": pattern, "$options": "i"}})
	}
	b.filter["$or"] = clauses
	return b
}

func (b *Builder) WhereNot(key string, value interface{}) *Builder {
	b.filter[key] = bson.M{"$ne": value}
	return b
}

func (b *Builder) Build() bson.M {
	return b.filter
}
