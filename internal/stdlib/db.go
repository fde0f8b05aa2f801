package stdlib

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/fusabi-lang/fusabi/internal/host"
	"github.com/fusabi-lang/fusabi/internal/vm"
)

// connTypeName is the HostData type name dbOpen tags its connection
// handles with; this is the string an allowed_host_data_kinds entry in
// fusabi.yaml names (config.Project.AllowsHostDataKind). dbOpen itself
// does not consult that allow-list.
const (
	connTypeName = "Db.Conn"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// Db returns the "Db" module: open/exec/query/close over database/sql,
// wrapping *sql.DB as a host.HostData and surfacing a bad query as
// Result("Err") rather than a RuntimeError — a failed query is
// scriptable failure, not a host-binding bug.
//
// Only the sqlite driver is wired. modernc.org/sqlite is pure Go and
// needs no cgo toolchain, which is why it's preferred here over
// mattn/go-sqlite3.
func Db() *host.Module {
	return host.NewModule("").
		FuncN("dbOpen", 1, func(args []vm.Value) (vm.Value, error) {
			dsn, err := host.Str(args[0])
			if err != nil {
				return vm.Value{}, err
			}
			conn, err := sql.Open("sqlite", dsn)
			if err != nil {
				return resultErr(err), nil
			}
			if err := conn.Ping(); err != nil {
				_ = conn.Close()
				return resultErr(err), nil
			}
			return resultOk(host.NewData(connTypeName, conn)), nil
		}).
		FuncN("dbClose", 1, func(args []vm.Value) (vm.Value, error) {
			conn, err := host.As[*sql.DB](args[0], connTypeName)
			if err != nil {
				return vm.Value{}, err
			}
			if err := conn.Close(); err != nil {
				return resultErr(err), nil
			}
			return resultOk(vm.Unit()), nil
		}).
		FuncN("dbExec", 2, func(args []vm.Value) (vm.Value, error) {
			return dbExec(args[0], args[1], vm.Nil())
		}).
		FuncN("dbExecParams", 3, func(args []vm.Value) (vm.Value, error) {
			return dbExec(args[0], args[1], args[2])
		}).
		FuncN("dbQuery", 2, func(args []vm.Value) (vm.Value, error) {
			return dbQuery(args[0], args[1], vm.Nil())
		}).
		FuncN("dbQueryParams", 3, func(args []vm.Value) (vm.Value, error) {
			return dbQuery(args[0], args[1], args[2])
		})
}

func dbExec(connV, queryV, paramsV vm.Value) (vm.Value, error) {
	conn, err := host.As[*sql.DB](connV, connTypeName)
	if err != nil {
		return vm.Value{}, err
	}
	query, err := host.Str(queryV)
	if err != nil {
		return vm.Value{}, err
	}
	params, err := paramsToGo(paramsV)
	if err != nil {
		return vm.Value{}, err
	}
	result, err := conn.Exec(placeholderPattern.ReplaceAllString(query, "?"), params...)
	if err != nil {
		return resultErr(err), nil
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return resultErr(err), nil
	}
	return resultOk(vm.Int(affected)), nil
}

func dbQuery(connV, queryV, paramsV vm.Value) (vm.Value, error) {
	conn, err := host.As[*sql.DB](connV, connTypeName)
	if err != nil {
		return vm.Value{}, err
	}
	query, err := host.Str(queryV)
	if err != nil {
		return vm.Value{}, err
	}
	params, err := paramsToGo(paramsV)
	if err != nil {
		return vm.Value{}, err
	}
	rows, err := conn.Query(placeholderPattern.ReplaceAllString(query, "?"), params...)
	if err != nil {
		return resultErr(err), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return resultErr(err), nil
	}

	var out []vm.Value
	for rows.Next() {
		scanned := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range scanned {
			ptrs[i] = &scanned[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return resultErr(err), nil
		}
		r := vm.NewRecord()
		for i, col := range cols {
			v, err := host.ToValue(normalizeYaml(scanned[i]))
			if err != nil {
				return vm.Value{}, err
			}
			r.Set(col, v)
		}
		out = append(out, vm.RecordVal(r))
	}
	if err := rows.Err(); err != nil {
		return resultErr(err), nil
	}
	return resultOk(vm.SliceToList(out)), nil
}

func paramsToGo(v vm.Value) ([]interface{}, error) {
	if v.Kind == vm.KindNil {
		return nil, nil
	}
	elems := vm.ListToSlice(v)
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		g, err := host.FromValue(e)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

func resultOk(v vm.Value) vm.Value { return vm.VariantVal("Result", "Ok", []vm.Value{v}) }
func resultErr(err error) vm.Value {
	return vm.VariantVal("Result", "Err", []vm.Value{vm.Str(fmt.Sprintf("%v", err))})
}
