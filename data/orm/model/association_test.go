package model

import (
	"context"
	"testing"

	"datastorm/data/orm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(t *testing.T, insts []*Instance) []string {
	t.Helper()
	out := make([]string, 0, len(insts))
	for _, inst := range insts {
		out = append(out, inst.String("name"))
	}
	return out
}

func TestAssociation_OneToMany(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	list, err := s.list.Find(ctx, 51)
	require.NoError(t, err)

	ds, err := list.Many("items")
	require.NoError(t, err)
	items, err := ds.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(42), items[0].ID())
	assert.Equal(t, "an item", items[0].String("name"))

	// 每次调用都是新的查询
	_, _, err = s.item.Create(ctx, map[string]any{"name": "third", "list_id": 51})
	require.NoError(t, err)
	ds, err = list.Many("items")
	require.NoError(t, err)
	n, err := ds.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAssociation_UnsavedOwnerMatchesNothing(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	// 外键为 NULL 的孤儿行不属于任何未保存的 list
	_, err := s.item.Execute(ctx, "INSERT INTO items (id, name, list_id) VALUES (77, 'orphan', NULL)")
	require.NoError(t, err)

	list, err := s.list.New(map[string]any{"name": "unsaved"})
	require.NoError(t, err)
	ds, err := list.Many("items")
	require.NoError(t, err)
	items, err := ds.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	tag, err := s.tag.New(map[string]any{"name": "draft"})
	require.NoError(t, err)
	back, err := tag.Many("lists")
	require.NoError(t, err)
	n, err := back.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAssociation_ManyToManyIsSymmetric(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	list, err := s.list.Find(ctx, 51)
	require.NoError(t, err)
	ds, err := list.Many("tags")
	require.NoError(t, err)
	tags, err := ds.Order("name").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fun", "supplies"}, names(t, tags))

	for _, tag := range tags {
		back, err := tag.Many("lists")
		require.NoError(t, err)
		lists, err := back.All(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a list"}, names(t, lists))
	}

	wish, err := s.tag.Find(ctx, 4)
	require.NoError(t, err)
	back, err := wish.Many("lists")
	require.NoError(t, err)
	none, err := back.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAssociation_ManyToOne(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	item, err := s.item.Find(ctx, 42)
	require.NoError(t, err)
	owner, err := item.One(ctx, "list")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, "a list", owner.String("name"))

	orphan, err := s.item.Find(ctx, 41)
	require.NoError(t, err)
	owner, err = orphan.One(ctx, "list")
	require.NoError(t, err)
	assert.Nil(t, owner, "list 12 does not exist")

	loose, err := s.item.New(map[string]any{"name": "loose"})
	require.NoError(t, err)
	owner, err = loose.One(ctx, "list")
	require.NoError(t, err)
	assert.Nil(t, owner)
}

func TestAssociation_CustomKeys(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)
	s.item.ManyToOne("owner", orm.WithTarget("list"), orm.WithForeignKey("list_id"))
	s.list.OneToMany("entries", orm.WithTarget("item"), orm.WithForeignKey("list_id"))

	item, err := s.item.Find(ctx, 42)
	require.NoError(t, err)
	owner, err := item.One(ctx, "owner")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, int64(51), owner.ID())

	ds, err := owner.Many("entries")
	require.NoError(t, err)
	entries, err := ds.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"an item"}, names(t, entries))
}

func TestAssociation_LinkAndUnlink(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	list, err := s.list.Find(ctx, 51)
	require.NoError(t, err)
	wish, err := s.tag.Find(ctx, 4)
	require.NoError(t, err)

	require.NoError(t, list.Link(ctx, "tags", wish))
	ds, err := list.Many("tags")
	require.NoError(t, err)
	tags, err := ds.All(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"supplies", "fun", "wish"}, names(t, tags))

	n, err := list.Unlink(ctx, "tags", wish)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	back, err := wish.Many("lists")
	require.NoError(t, err)
	lists, err := back.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestAssociation_LinkRequiresPersistedInstances(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	fresh, err := s.tag.New(map[string]any{"name": "fresh"})
	require.NoError(t, err)
	list, err := s.list.Find(ctx, 51)
	require.NoError(t, err)

	assert.ErrorIs(t, list.Link(ctx, "tags", fresh), orm.ErrNotPersisted)

	draft, err := s.list.New(map[string]any{"name": "draft"})
	require.NoError(t, err)
	supplies, err := s.tag.Find(ctx, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, draft.Link(ctx, "tags", supplies), orm.ErrNotPersisted)
}

func TestAssociation_Errors(t *testing.T) {
	ctx := context.Background()
	s := newSchema(t)

	list, err := s.list.Find(ctx, 51)
	require.NoError(t, err)
	item, err := s.item.Find(ctx, 42)
	require.NoError(t, err)

	_, err = list.Many("flowers")
	assert.ErrorIs(t, err, orm.ErrUnknownAssociation)

	_, err = item.Many("list")
	assert.ErrorIs(t, err, orm.ErrUnsupported)

	_, err = list.One(ctx, "items")
	assert.ErrorIs(t, err, orm.ErrUnsupported)

	assert.ErrorIs(t, item.Link(ctx, "list", list), orm.ErrUnsupported)

	s.list.OneToMany("gadgets")
	_, err = list.Many("gadgets")
	assert.ErrorIs(t, err, orm.ErrUnknownModel)

	s.list.ManyToMany("labels", orm.WithTarget("tag"), orm.WithJoinTable("lists_tags; --", "list_id", "tag_id"))
	_, err = list.Many("labels")
	assert.ErrorIs(t, err, orm.ErrUnsafeIdentifier)
}
