package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"
)

// Document is one processed receipt: the full extraction blob plus scalar
// projections for querying.
type Document struct{ ent.Schema }

func (Document) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "documents"},
	}
}

func (Document) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("file_name").NotEmpty().MaxLen(255),
		field.String("file_hash").NotEmpty().MinLen(32).MaxLen(32).
			SchemaType(map[string]string{dialect.Postgres: "char(32)"}),
		field.Bytes("extracted_json").Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Bool("has_prohibited_items").Default(false),
		field.String("vendor_name").Optional().MaxLen(255),
		field.String("total_amount").Optional().MaxLen(64),
		field.String("receipt_date").Optional().MaxLen(32),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Document) Indexes() []ent.Index {
	return []ent.Index{
		// Duplicate gate lookups.
		index.Fields("file_name"),
		index.Fields("file_hash"),
		// Compliance queries filter on the flag.
		index.Fields("has_prohibited_items"),
	}
}
