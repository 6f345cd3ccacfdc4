package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func parse(t *testing.T, v any) *schema.Schema {
	t.Helper()
	s, err := schema.Parse(v, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	return s
}

func TestNotionDBMapIndexedColumnsAreBounded(t *testing.T) {
	s := parse(t, &NotionDBMap{})
	for _, name := range []string{"kind", "name"} {
		f := s.LookUpField(name)
		require.NotNil(t, f, name)
		assert.Greater(t, f.Size, 0, name)
		assert.LessOrEqual(t, f.Size, 191, name)
	}
}

func TestLongTextColumnsHaveNoFixedType(t *testing.T) {
	s := parse(t, &Task{})
	for _, name := range []string{"transcription_result", "final_summary"} {
		f := s.LookUpField(name)
		require.NotNil(t, f, name)
		assert.Equal(t, schema.String, f.DataType, name)
		assert.Zero(t, f.Size, name)
		assert.Empty(t, f.TagSettings["TYPE"], name)
	}
}
