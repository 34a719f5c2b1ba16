package model

import (
	"context"
	"fmt"

	"datastorm/data/dataset"
	dbsql "datastorm/data/db/sql"
	"datastorm/data/orm"
)

// matchNothing 恒假条件，三种方言均可用
const matchNothing = "1 = 0"

// OneToMany 声明一对多关联：list.OneToMany("items") 解析为 items.list_id = lists.id
func (m *Model) OneToMany(name string, opts ...orm.AssociationOption) *Model {
	return m.associate(orm.AssociationMeta{
		Name:       name,
		Kind:       orm.AssociationOneToMany,
		Target:     orm.Singular(name),
		LocalKey:   m.primaryKey,
		ForeignKey: orm.ForeignKey(m.name),
	}, opts)
}

// ManyToOne 声明多对一关联：item.ManyToOne("list") 通过 items.list_id 查找 list
func (m *Model) ManyToOne(name string, opts ...orm.AssociationOption) *Model {
	return m.associate(orm.AssociationMeta{
		Name:       name,
		Kind:       orm.AssociationManyToOne,
		Target:     orm.Singular(name),
		ForeignKey: orm.ForeignKey(name),
	}, opts)
}

// ManyToMany 声明多对多关联：list.ManyToMany("tags") 默认经由中间表 lists_tags
// （两侧表名排序后拼接），中间表键为 list_id 与 tag_id
func (m *Model) ManyToMany(name string, opts ...orm.AssociationOption) *Model {
	target := orm.Singular(name)
	return m.associate(orm.AssociationMeta{
		Name:             name,
		Kind:             orm.AssociationManyToMany,
		Target:           target,
		JoinForeignKey:   orm.ForeignKey(m.name),
		JoinReferenceKey: orm.ForeignKey(target),
	}, opts)
}

func (m *Model) associate(a orm.AssociationMeta, opts []orm.AssociationOption) *Model {
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for idx, existing := range m.associations {
		if existing.Name == a.Name {
			m.associations[idx] = a
			return m
		}
	}
	m.associations = append(m.associations, a)
	return m
}

// Association 按名称返回关联元信息
func (m *Model) Association(name string) (orm.AssociationMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.associations {
		if a.Name == name {
			return a, true
		}
	}
	return orm.AssociationMeta{}, false
}

func (i *Instance) resolve(name string) (orm.AssociationMeta, *Model, error) {
	a, ok := i.model.Association(name)
	if !ok {
		return a, nil, fmt.Errorf("%w: %s.%s", orm.ErrUnknownAssociation, i.model.name, name)
	}
	target, err := i.model.registry.Lookup(a.Target)
	if err != nil {
		return a, nil, fmt.Errorf("association %s.%s: %w", i.model.name, name, err)
	}
	if a.Kind == orm.AssociationManyToMany && a.JoinTable == "" {
		a.JoinTable = orm.JoinTableName(i.model.table, target.table)
	}
	for _, id := range []string{a.LocalKey, a.ForeignKey, a.JoinTable, a.JoinForeignKey, a.JoinReferenceKey} {
		if id != "" && !dbsql.IsSafeIdentifier(id) {
			return a, nil, fmt.Errorf("%w: association %s.%s uses %q", orm.ErrUnsafeIdentifier, i.model.name, name, id)
		}
	}
	return a, target, nil
}

// Many 返回一对多或多对多关联的目标实例数据集；每次调用都构造新的查询，不做缓存。
// 本端键为空（例如尚未保存的实例）时返回恒为空的数据集，不会匹配外键为 NULL 的行。
func (i *Instance) Many(name string) (*dataset.Dataset[*Instance], error) {
	a, target, err := i.resolve(name)
	if err != nil {
		return nil, err
	}
	switch a.Kind {
	case orm.AssociationOneToMany:
		localKey := a.LocalKey
		if localKey == "" {
			localKey = i.model.primaryKey
		}
		key := i.values[localKey]
		if key == nil {
			return target.Dataset().WhereExpr(matchNothing), nil
		}
		return target.Dataset().Where(orm.Cond{a.ForeignKey: key}), nil
	case orm.AssociationManyToMany:
		ds := target.Dataset()
		if i.ID() == nil {
			return ds.WhereExpr(matchNothing), nil
		}
		q := ds.Dialect().QuoteIdentifier
		on := fmt.Sprintf("INNER JOIN %s ON %s = %s",
			q(a.JoinTable),
			q(a.JoinTable+"."+a.JoinReferenceKey),
			q(target.table+"."+target.primaryKey),
		)
		return ds.Join(on).Where(orm.Cond{a.JoinTable + "." + a.JoinForeignKey: i.ID()}), nil
	default:
		return nil, fmt.Errorf("%w: %s.%s is %s, use One", orm.ErrUnsupported, i.model.name, name, a.Kind)
	}
}

// One 解析多对一关联；外键为空或目标不存在时返回 (nil, nil)
func (i *Instance) One(ctx context.Context, name string) (*Instance, error) {
	a, target, err := i.resolve(name)
	if err != nil {
		return nil, err
	}
	if a.Kind != orm.AssociationManyToOne {
		return nil, fmt.Errorf("%w: %s.%s is %s, use Many", orm.ErrUnsupported, i.model.name, name, a.Kind)
	}
	fk := i.values[a.ForeignKey]
	if fk == nil {
		return nil, nil
	}
	if a.LocalKey != "" {
		return target.Dataset().Where(orm.Cond{a.LocalKey: fk}).First(ctx)
	}
	return target.Find(ctx, fk)
}

func (i *Instance) joinRows(name string, targets []*Instance) (orm.AssociationMeta, *dataset.Dataset[dataset.Record], []any, error) {
	a, _, err := i.resolve(name)
	if err != nil {
		return a, nil, nil, err
	}
	if a.Kind != orm.AssociationManyToMany {
		return a, nil, nil, fmt.Errorf("%w: %s.%s is %s, link requires many_to_many", orm.ErrUnsupported, i.model.name, name, a.Kind)
	}
	if i.isNew {
		return a, nil, nil, fmt.Errorf("%w: %s", orm.ErrNotPersisted, i.model.name)
	}
	ids := make([]any, 0, len(targets))
	for _, t := range targets {
		if t == nil || t.isNew {
			return a, nil, nil, fmt.Errorf("%w: %s target", orm.ErrNotPersisted, name)
		}
		ids = append(ids, t.ID())
	}
	join := dataset.New(i.model.registry.db, a.JoinTable,
		dataset.WithoutPrimaryKey(),
		dataset.WithLogger(i.model.registry.logger),
	)
	return a, join, ids, nil
}

// Link 为多对多关联写入中间表行
func (i *Instance) Link(ctx context.Context, name string, targets ...*Instance) error {
	a, join, ids, err := i.joinRows(name, targets)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := join.Insert(ctx, map[string]any{a.JoinForeignKey: i.ID(), a.JoinReferenceKey: id}); err != nil {
			return err
		}
	}
	return nil
}

// Unlink 删除多对多关联的中间表行，返回删除的行数
func (i *Instance) Unlink(ctx context.Context, name string, targets ...*Instance) (int64, error) {
	a, join, ids, err := i.joinRows(name, targets)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return join.Where(orm.Cond{a.JoinForeignKey: i.ID(), a.JoinReferenceKey: ids}).Delete(ctx)
}
