package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/models"
	"github.com/ekaya-inc/ekaya-trane/pkg/mltypes"
)

func transactionsSchema(t *testing.T) *SingleTable {
	t.Helper()
	md, err := NewSingleTable([]Column{
		{Name: "id", Type: mltypes.New(mltypes.Integer)},
		{Name: "customer_id", Type: mltypes.New(mltypes.Categorical, mltypes.TagIndex)},
		{Name: "date", Type: mltypes.New(mltypes.Datetime)},
		{Name: "amount", Type: mltypes.New(mltypes.Double)},
	}, "id", "date")
	require.NoError(t, err)
	return md
}

func TestSingleTable_KeysAttachTags(t *testing.T) {
	md := transactionsSchema(t)

	assert.Equal(t, []string{"id", "customer_id", "date", "amount"}, md.Columns())
	idType, ok := md.Type("id")
	require.True(t, ok)
	assert.True(t, idType.HasTag(mltypes.TagPrimaryKey))
	dateType, _ := md.Type("date")
	assert.True(t, dateType.HasTag(mltypes.TagTimeIndex))

	// moving the time index moves the tag
	require.NoError(t, md.SetTimeIndex("amount"))
	dateType, _ = md.Type("date")
	assert.False(t, dateType.HasTag(mltypes.TagTimeIndex))
	amountType, _ := md.Type("amount")
	assert.True(t, amountType.HasTag(mltypes.TagTimeIndex))
}

func TestSingleTable_StructuralErrors(t *testing.T) {
	_, err := NewSingleTable([]Column{{Name: "a", Type: mltypes.New(mltypes.Integer)}}, "missing", "")
	assert.ErrorIs(t, err, apperrors.ErrUnknownColumn)

	_, err = NewSingleTable([]Column{{Name: "a"}}, "", "")
	assert.ErrorIs(t, err, apperrors.ErrUnknownMLType)

	_, err = NewSingleTable([]Column{
		{Name: "a", Type: mltypes.New(mltypes.Integer)},
		{Name: "a", Type: mltypes.New(mltypes.Double)},
	}, "", "")
	assert.Error(t, err)
}

func TestSingleTable_SetTypeKeepsKeyTags(t *testing.T) {
	md := transactionsSchema(t)
	require.NoError(t, md.SetType("id", mltypes.New(mltypes.Categorical)))
	idType, _ := md.Type("id")
	assert.Same(t, mltypes.Categorical, idType.Logical)
	assert.True(t, idType.HasTag(mltypes.TagPrimaryKey))

	require.NoError(t, md.SetType("fresh", mltypes.New(mltypes.Boolean)))
	assert.Equal(t, "fresh", md.Columns()[4])
}

func TestSingleTable_CloneIsIndependent(t *testing.T) {
	md := transactionsSchema(t)
	cp := md.Clone()
	assert.True(t, md.Equal(cp))

	require.NoError(t, cp.SetType("amount", mltypes.New(mltypes.Integer)))
	assert.False(t, md.Equal(cp))
	amountType, _ := md.Type("amount")
	assert.Same(t, mltypes.Double, amountType.Logical)
}

func TestMultiTable_AddRelationship(t *testing.T) {
	customers, err := NewSingleTable([]Column{
		{Name: "id", Type: mltypes.New(mltypes.Categorical, mltypes.TagIndex)},
		{Name: "country", Type: mltypes.New(mltypes.Categorical)},
	}, "id", "")
	require.NoError(t, err)

	mt := NewMultiTable()
	require.NoError(t, mt.AddTable("customers", customers))
	require.NoError(t, mt.AddTable("transactions", transactionsSchema(t)))

	rel := Relationship{ParentTable: "customers", ParentKey: "id", ChildTable: "transactions", ChildKey: "customer_id"}
	require.NoError(t, mt.AddRelationship(rel))

	txn, err := mt.Table("transactions")
	require.NoError(t, err)
	fk, _ := txn.Type("customer_id")
	assert.True(t, fk.HasTag(mltypes.TagForeignKey))
	assert.Equal(t, []Relationship{rel}, mt.ParentsOf("transactions"))
	assert.Empty(t, mt.ParentsOf("customers"))

	err = mt.AddRelationship(Relationship{ParentTable: "stores", ParentKey: "id", ChildTable: "transactions", ChildKey: "store_id"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRelationship)
	assert.ErrorIs(t, err, apperrors.ErrUnknownTable)

	err = mt.AddRelationship(Relationship{ParentTable: "customers", ParentKey: "id", ChildTable: "transactions", ChildKey: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownColumn)

	_, err = mt.Table("stores")
	assert.ErrorIs(t, err, apperrors.ErrUnknownTable)
}

func TestParse_SingleTableMapping(t *testing.T) {
	doc := `
columns:
  id: [Categorical, [index]]
  date: Datetime
  amount: Double
  card_type: {type: Categorical, tags: [foreign_key]}
primary_key: id
time_index: date
`
	schema, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, schema.Single)
	md := schema.Single

	assert.Equal(t, []string{"id", "date", "amount", "card_type"}, md.Columns())
	assert.Equal(t, "id", md.PrimaryKey())
	assert.Equal(t, "date", md.TimeIndex())

	idType, _ := md.Type("id")
	assert.Equal(t, []string{mltypes.TagCategory, mltypes.TagIndex, mltypes.TagPrimaryKey}, idType.Tags().Sorted())
	cardType, _ := md.Type("card_type")
	assert.True(t, cardType.HasTag(mltypes.TagForeignKey))
}

func TestParse_LegacyDescriptors(t *testing.T) {
	doc := `
columns:
  - {name: id, type: identifier}
  - {name: ts, type: datetime}
  - {name: fare, type: numeric, subtype: float}
  - {name: passengers, type: numeric, subtype: integer}
  - {name: notes, type: text}
  - {name: flagged, type: boolean}
time_index: ts
`
	schema, err := Parse([]byte(doc))
	require.NoError(t, err)
	md := schema.Single

	want := map[string]*mltypes.LogicalType{
		"id":         mltypes.Categorical,
		"ts":         mltypes.Datetime,
		"fare":       mltypes.Double,
		"passengers": mltypes.Integer,
		"notes":      mltypes.NaturalLanguage,
		"flagged":    mltypes.Boolean,
	}
	for col, logical := range want {
		typ, ok := md.Type(col)
		require.True(t, ok, col)
		assert.Same(t, logical, typ.Logical, col)
	}
	idType, _ := md.Type("id")
	assert.True(t, idType.HasTag(mltypes.TagIndex))
}

func TestParse_MultiTable(t *testing.T) {
	doc := `
tables:
  customers:
    columns: {id: [Categorical, [index]], country: Categorical}
    primary_key: id
  transactions:
    columns: {id: Integer, customer_id: Categorical, date: Datetime, amount: Double}
    primary_key: id
    time_index: date
relationships:
  - [customers, id, transactions, customer_id]
`
	schema, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, schema.Multi)
	assert.Equal(t, []string{"customers", "transactions"}, schema.Multi.Tables())
	require.Len(t, schema.Multi.Relationships(), 1)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]struct {
		doc  string
		want error
	}{
		"unknown type":      {"columns: {a: Quaternion}", apperrors.ErrUnknownMLType},
		"not a mapping":     {"- a\n- b", apperrors.ErrInvalidDocument},
		"missing columns":   {"primary_key: a", apperrors.ErrInvalidDocument},
		"bad relationship":  {"tables: {a: {columns: {x: Integer}}}\nrelationships: [[a, x]]", apperrors.ErrInvalidDocument},
		"unknown rel table": {"tables: {a: {columns: {x: Integer}}}\nrelationships: [[b, x, a, x]]", apperrors.ErrInvalidRelationship},
		"unknown pk":        {"columns: {a: Integer}\nprimary_key: b", apperrors.ErrUnknownColumn},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	md := transactionsSchema(t)
	raw, err := json.Marshal(md.Document())
	require.NoError(t, err)

	var doc models.MetadataDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	back, err := FromDocument(doc)
	require.NoError(t, err)
	assert.True(t, md.Equal(back))
}

func TestInferSingleTable(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f, err := frame.New(
		frame.NewSeries("id", frame.Int64, []any{1, 2, 3, 4}),
		frame.NewSeries("date", frame.Datetime, []any{d, d.Add(time.Hour), d.Add(2 * time.Hour), d.Add(3 * time.Hour)}),
		frame.NewSeries("card", frame.String, []any{"visa", "visa", "amex", "visa"}),
	)
	require.NoError(t, err)

	md, err := InferSingleTable(f, "id", "date", mltypes.DefaultInferenceConfig())
	require.NoError(t, err)
	dateType, _ := md.Type("date")
	assert.Same(t, mltypes.Datetime, dateType.Logical)
	cardType, _ := md.Type("card")
	assert.Same(t, mltypes.Categorical, cardType.Logical)

	coerced, err := md.CoerceFrame(f)
	require.NoError(t, err)
	card, _ := coerced.Column("card")
	assert.Equal(t, frame.Category, card.DType())
}
