package postgresadapter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func columnNames(fields []*schema.Field) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.DBName)
	}
	return names
}

func TestModelsDeclareCascadingForeignKeys(t *testing.T) {
	cache := &sync.Map{}

	choices, err := schema.Parse(&choiceModel{}, cache, schema.NamingStrategy{})
	require.NoError(t, err)
	rel, ok := choices.Relationships.Relations["Question"]
	require.True(t, ok)
	constraint := rel.ParseConstraint()
	require.NotNil(t, constraint)
	require.Equal(t, "CASCADE", constraint.OnDelete)
	require.Equal(t, "choices", constraint.Schema.Table)
	require.Equal(t, "questions", constraint.ReferenceSchema.Table)
	require.Equal(t, []string{"question_id"}, columnNames(constraint.ForeignKeys))
	require.Equal(t, []string{"id"}, columnNames(constraint.References))

	votes, err := schema.Parse(&voteModel{}, cache, schema.NamingStrategy{})
	require.NoError(t, err)
	rel, ok = votes.Relationships.Relations["Choice"]
	require.True(t, ok)
	constraint = rel.ParseConstraint()
	require.NotNil(t, constraint)
	require.Equal(t, "CASCADE", constraint.OnDelete)
	require.Equal(t, "votes", constraint.Schema.Table)
	require.Equal(t, "choices", constraint.ReferenceSchema.Table)
	require.Equal(t, []string{"choice_id", "question_id"}, columnNames(constraint.ForeignKeys))
	require.Equal(t, []string{"id", "question_id"}, columnNames(constraint.References))
}

func TestModelsAreListedParentsFirst(t *testing.T) {
	models := Models()
	require.IsType(t, &questionModel{}, models[0])
	require.IsType(t, &choiceModel{}, models[1])
	require.IsType(t, &voteModel{}, models[2])
}
