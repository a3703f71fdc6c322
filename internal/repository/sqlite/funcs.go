package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
)

// foldCaseFunc is the SQL name of a Unicode-aware lower(). SQLite's own
// lower() and LIKE only fold ASCII, so "Картофель" would never match "карт".
const foldCaseFunc = "fold_case"

// Scalar functions are registered driver-wide and apply to every connection
// opened afterwards, so this has to run before New.
func init() {
	err := msqlite.RegisterDeterministicScalarFunction(foldCaseFunc, 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return nil, fmt.Errorf("%s: unsupported argument type %T", foldCaseFunc, v)
			}
		})
	if err != nil {
		panic(fmt.Sprintf("sqlite: registering %s: %v", foldCaseFunc, err))
	}
}
