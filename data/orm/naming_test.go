package orm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaming(t *testing.T) {
	tests := []struct {
		model   string
		table   string
		display string
		fk      string
	}{
		{"list", "lists", "List", "list_id"},
		{"item", "items", "Item", "item_id"},
		{"category", "categories", "Category", "category_id"},
		{"line_item", "line_items", "LineItem", "line_item_id"},
		{"Actor", "actors", "Actor", "actor_id"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.table, TableName(tt.model))
			assert.Equal(t, tt.display, DisplayName(tt.model))
			assert.Equal(t, tt.fk, ForeignKey(tt.model))
		})
	}
}

func TestSingular(t *testing.T) {
	assert.Equal(t, "item", Singular("items"))
	assert.Equal(t, "tag", Singular("Tags"))
	assert.Equal(t, "category", Singular("categories"))
}

func TestJoinTableName(t *testing.T) {
	assert.Equal(t, "lists_tags", JoinTableName("lists", "tags"))
	assert.Equal(t, "lists_tags", JoinTableName("tags", "lists"))
}
