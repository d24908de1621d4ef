package factstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"modernc.org/sqlite"

	"github.com/aidanlsb/discourse/internal/sqlutil"
)

func init() {
	// SQLite rewrites `x REGEXP y` to regexp(y, x).
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
}

var patternCache sync.Map

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("regexp expects 2 arguments")
	}

	pattern, ok := driverValueToString(args[0])
	if !ok || pattern == "" {
		return int64(0), nil
	}
	value, ok := driverValueToString(args[1])
	if !ok {
		return int64(0), nil
	}

	re, err := compileCached(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(value) {
		return int64(1), nil
	}
	return int64(0), nil
}

func driverValueToString(v driver.Value) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// TitlesMatching returns the page titles matching pattern, sorted.
func (s *Store) TitlesMatching(ctx context.Context, pattern string) ([]string, error) {
	if _, err := compileCached(pattern); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT v FROM datoms WHERE a = ? AND v REGEXP ? ORDER BY v", AttrTitle, pattern)
	if err != nil {
		return nil, err
	}
	return sqlutil.ScanRows(rows, func(r *sql.Rows) (string, error) {
		var title string
		err := r.Scan(&title)
		return title, err
	})
}
