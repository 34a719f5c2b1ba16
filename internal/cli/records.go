package cli

import (
	"fmt"

	"github.com/jinzhu/inflection"
	"github.com/spf13/cobra"

	"datastorm/data/dataset"
	"datastorm/data/orm"
	"datastorm/data/orm/model"
	sharederrors "datastorm/errors"
	"datastorm/validation"
)

// recordFlags insert/update/destroy 共用参数
type recordFlags struct {
	primaryKey string
	unique     []string
}

func (r *recordFlags) bind(cmd *cobra.Command, validators bool) {
	cmd.Flags().StringVar(&r.primaryKey, "pk", "id", "primary key column")
	if validators {
		cmd.Flags().StringSliceVar(&r.unique, "unique", nil, "columns that must be unique within the table")
	}
}

// model 以表名定义一个临时模型：items -> item
func (a *app) model(table string, r *recordFlags) (*model.Model, error) {
	if err := validation.ValidateIdentifier(table, "table"); err != nil {
		return nil, err
	}
	if err := validation.ValidateIdentifier(r.primaryKey, "pk"); err != nil {
		return nil, err
	}
	reg := model.NewRegistry(a.db, model.WithLogger(a.logger))
	m := reg.Define(inflection.Singular(table), model.WithTable(table), model.WithPrimaryKey(r.primaryKey))
	for _, col := range r.unique {
		if err := validation.ValidateIdentifier(col, "unique"); err != nil {
			return nil, err
		}
		m.Validate(col, validation.Unique())
	}
	return m, nil
}

func (a *app) find(cmd *cobra.Command, m *model.Model, id string) (*model.Instance, error) {
	inst, err := m.Find(cmd.Context(), parseValue(id))
	if err != nil {
		return nil, sharederrors.WrapDatabaseError(cmd.Context(), err, "find "+m.Table())
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: %s %s", orm.ErrNotFound, m.Table(), id)
	}
	return inst, nil
}

func (a *app) renderInstance(cmd *cobra.Command, inst *model.Instance) error {
	rec := dataset.Record(inst.Attributes())
	return renderRecords(cmd.OutOrStdout(), a.output, recordColumns(rec), []dataset.Record{rec})
}

func newInsertCommand(a *app) *cobra.Command {
	var r recordFlags
	cmd := &cobra.Command{
		Use:   "insert <table> column=value...",
		Short: "Insert a record through a model",
		Example: `  datastorm insert lists name=groceries --unique name
  datastorm insert items name=milk list_id=51 --events memory`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			m, err := a.model(args[0], &r)
			if err != nil {
				return err
			}
			done, err := a.withEvents(cmd.Context(), m, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			inst, _, err := m.Create(cmd.Context(), attrs)
			if err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), withFieldErrors(err, inst), "insert "+m.Table())
			}
			return a.renderInstance(cmd, inst)
		},
	}
	r.bind(cmd, true)
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var r recordFlags
	cmd := &cobra.Command{
		Use:     "update <table> <id> column=value...",
		Short:   "Update a record through a model, writing only changed columns",
		Example: `  datastorm update items 42 name=renamed`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			m, err := a.model(args[0], &r)
			if err != nil {
				return err
			}
			done, err := a.withEvents(cmd.Context(), m, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			inst, err := a.find(cmd, m, args[1])
			if err != nil {
				return err
			}
			for col, v := range attrs {
				if err := inst.Set(col, v); err != nil {
					return err
				}
			}
			if _, err := inst.Save(cmd.Context()); err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), withFieldErrors(err, inst), "update "+m.Table())
			}
			return a.renderInstance(cmd, inst)
		},
	}
	r.bind(cmd, true)
	return cmd
}

func newDestroyCommand(a *app) *cobra.Command {
	var r recordFlags
	cmd := &cobra.Command{
		Use:   "destroy <table> <id>",
		Short: "Delete a record through a model, running its destroy hooks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.model(args[0], &r)
			if err != nil {
				return err
			}
			done, err := a.withEvents(cmd.Context(), m, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer done()

			inst, err := a.find(cmd, m, args[1])
			if err != nil {
				return err
			}
			if _, err := inst.Destroy(cmd.Context()); err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "destroy "+m.Table())
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "destroyed %s %s\n", m.Table(), args[1])
			return err
		},
	}
	r.bind(cmd, false)
	return cmd
}

// withFieldErrors 校验失败时把字段错误拼进错误信息
func withFieldErrors(err error, inst *model.Instance) error {
	if inst == nil || inst.Errors().Empty() {
		return err
	}
	return fmt.Errorf("%w: %v", err, inst.Errors().FullMessages())
}
