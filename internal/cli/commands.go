package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"datastorm/data/dataset"
	"datastorm/data/orm"
	sharederrors "datastorm/errors"
	"datastorm/validation"
)

// queryFlags count/all/first 共用的过滤参数
type queryFlags struct {
	where  []string
	order  string
	desc   bool
	limit  int
	offset int
}

func (q *queryFlags) bind(cmd *cobra.Command, paging bool) {
	cmd.Flags().StringArrayVarP(&q.where, "where", "w", nil, "equality filter column=value (repeatable, value null matches IS NULL)")
	if !paging {
		return
	}
	cmd.Flags().StringVar(&q.order, "order", "", "order by column")
	cmd.Flags().BoolVar(&q.desc, "desc", false, "descending order")
	cmd.Flags().IntVar(&q.limit, "limit", 0, "maximum rows (0 = no limit)")
	cmd.Flags().IntVar(&q.offset, "offset", 0, "rows to skip")
}

func (q *queryFlags) apply(ds *dataset.Dataset[dataset.Record]) (*dataset.Dataset[dataset.Record], error) {
	cond, err := parseAssignments(q.where)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePage(q.limit, q.offset); err != nil {
		return nil, err
	}
	if len(cond) > 0 {
		ds = ds.Where(orm.Cond(cond))
	}
	if q.order != "" {
		if err := validation.ValidateIdentifier(q.order, "order"); err != nil {
			return nil, err
		}
		if q.desc {
			ds = ds.OrderDesc(q.order)
		} else {
			ds = ds.Order(q.order)
		}
	}
	if q.limit > 0 {
		ds = ds.Limit(q.limit)
	}
	if q.offset > 0 {
		ds = ds.Offset(q.offset)
	}
	return ds, nil
}

// parseAssignments 解析 column=value 列表
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, validation.NewValidationError(fmt.Sprintf("参数格式应为 列=值: %q", p))
		}
		key = strings.TrimSpace(key)
		if err := validation.ValidateIdentifier(key, "column"); err != nil {
			return nil, err
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

// parseValue 整数按 int64 传给驱动，null 表示 NULL，其余保持字符串
func parseValue(s string) any {
	if strings.EqualFold(s, "null") {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func (a *app) dataset(table string) (*dataset.Dataset[dataset.Record], error) {
	if err := validation.ValidateIdentifier(table, "table"); err != nil {
		return nil, err
	}
	return dataset.New(a.db, table, dataset.WithLogger(a.logger)), nil
}

func newCountCommand(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows of a table",
		Example: `  datastorm count items
  datastorm count items --where list_id=51`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.dataset(args[0])
			if err != nil {
				return err
			}
			if ds, err = q.apply(ds); err != nil {
				return err
			}
			n, err := ds.Count(cmd.Context())
			if err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "count "+args[0])
			}
			return renderValue(cmd.OutOrStdout(), a.output, "count", n)
		},
	}
	q.bind(cmd, false)
	return cmd
}

func newAllCommand(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "all <table>",
		Short: "List rows of a table",
		Example: `  datastorm all items --where list_id=51 --order name --limit 10
  datastorm all items -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.dataset(args[0])
			if err != nil {
				return err
			}
			if ds, err = q.apply(ds); err != nil {
				return err
			}
			rows, columns, err := ds.AllWithColumns(cmd.Context())
			if err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "select "+args[0])
			}
			names := make([]string, len(columns))
			for i, c := range columns {
				names[i] = c.Name
			}
			return renderRecords(cmd.OutOrStdout(), a.output, names, rows)
		},
	}
	q.bind(cmd, true)
	return cmd
}

func newFirstCommand(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "first <table>",
		Short: "Show the first matching row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.dataset(args[0])
			if err != nil {
				return err
			}
			if ds, err = q.apply(ds); err != nil {
				return err
			}
			rec, err := ds.First(cmd.Context())
			if err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "select "+args[0])
			}
			if rec == nil {
				return renderRecords(cmd.OutOrStdout(), a.output, nil, nil)
			}
			return renderRecords(cmd.OutOrStdout(), a.output, recordColumns(rec), []dataset.Record{rec})
		},
	}
	q.bind(cmd, true)
	return cmd
}

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <table> <statement> [args...]",
		Short: "Execute a raw statement verbatim against a table's dataset",
		Long: `Execute runs the statement exactly as given; the table only scopes logging
and error reporting. Extra arguments are bound to its placeholders in order;
integers are passed as integers.`,
		Example: `  datastorm exec items "UPDATE items SET name = ? WHERE id = ?" renamed 42`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.dataset(args[0])
			if err != nil {
				return err
			}
			binds := make([]any, 0, len(args)-2)
			for _, s := range args[2:] {
				binds = append(binds, parseValue(s))
			}
			res, err := ds.Execute(cmd.Context(), args[1], binds...)
			if err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "exec "+args[0])
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			return renderValue(cmd.OutOrStdout(), a.output, "rows_affected", n)
		},
	}
}

func newTruncateCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "truncate <table>",
		Short: "Remove every row of a table and reset its key sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return validation.NewValidationError("truncate 需要 --yes 确认")
			}
			ds, err := a.dataset(args[0])
			if err != nil {
				return err
			}
			if err := ds.Truncate(cmd.Context()); err != nil {
				return sharederrors.WrapDatabaseError(cmd.Context(), err, "truncate "+args[0])
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "truncated %s\n", args[0])
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm truncation")
	return cmd
}
