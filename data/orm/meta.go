package orm

// AssociationKind 表示关联类型。
type AssociationKind string

const (
	AssociationOneToMany  AssociationKind = "one_to_many"
	AssociationManyToOne  AssociationKind = "many_to_one"
	AssociationManyToMany AssociationKind = "many_to_many"
)

// AssociationMeta 描述模型关联元信息，声明后不可变，被模型的所有实例共享。
//
// 各类型下键的含义：
//   - one_to_many：Target.ForeignKey = Owner.LocalKey
//   - many_to_one：Owner.ForeignKey 指向 Target 主键
//   - many_to_many：JoinTable.JoinForeignKey = Owner 主键，
//     JoinTable.JoinReferenceKey = Target 主键
type AssociationMeta struct {
	Name             string
	Kind             AssociationKind
	Target           string // 目标模型名
	LocalKey         string
	ForeignKey       string
	JoinTable        string
	JoinForeignKey   string // 多对多/中间表时的本侧键
	JoinReferenceKey string // 多对多/中间表时的目标键
}

// AssociationOption 覆盖关联的默认推断结果。
type AssociationOption func(*AssociationMeta)

// WithTarget 指定目标模型名（默认由关联名单数化得到）。
func WithTarget(model string) AssociationOption {
	return func(a *AssociationMeta) {
		if model != "" {
			a.Target = model
		}
	}
}

// WithForeignKey 指定外键列。
func WithForeignKey(column string) AssociationOption {
	return func(a *AssociationMeta) {
		if column != "" {
			a.ForeignKey = column
		}
	}
}

// WithLocalKey 指定本侧被引用的列（默认主键）。
func WithLocalKey(column string) AssociationOption {
	return func(a *AssociationMeta) {
		if column != "" {
			a.LocalKey = column
		}
	}
}

// WithJoinTable 指定多对多中间表及其两侧键。空字符串表示沿用默认值。
func WithJoinTable(table, ownerKey, targetKey string) AssociationOption {
	return func(a *AssociationMeta) {
		if table != "" {
			a.JoinTable = table
		}
		if ownerKey != "" {
			a.JoinForeignKey = ownerKey
		}
		if targetKey != "" {
			a.JoinReferenceKey = targetKey
		}
	}
}

// FieldMeta 描述字段元信息。
type FieldMeta struct {
	Name          string
	Column        string
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	DefaultValue  any
}

// ModelMeta 描述模型级别元信息。
//
// Fields 为空表示不限制列集合，由数据库负责拒绝未知列。
type ModelMeta struct {
	Name         string
	Table        string
	PrimaryKey   string
	Fields       []FieldMeta
	Associations []AssociationMeta
}

// HasField 判断列是否已声明；未声明任何字段时总是返回 true。
func (m *ModelMeta) HasField(column string) bool {
	if m == nil || len(m.Fields) == 0 {
		return true
	}
	if column == m.PrimaryKey {
		return true
	}
	for _, f := range m.Fields {
		if f.Column == column {
			return true
		}
	}
	return false
}

// Field 按列名查找字段元信息。
func (m *ModelMeta) Field(column string) (FieldMeta, bool) {
	if m == nil {
		return FieldMeta{}, false
	}
	for _, f := range m.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return FieldMeta{}, false
}

// Association 按名称查找关联。
func (m *ModelMeta) Association(name string) (AssociationMeta, bool) {
	if m == nil {
		return AssociationMeta{}, false
	}
	for _, a := range m.Associations {
		if a.Name == name {
			return a, true
		}
	}
	return AssociationMeta{}, false
}
