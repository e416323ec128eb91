package sqlite

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"
)

// maxCachedPatterns bounds the compiled pattern cache. The cache is reset
// when it fills up.
const maxCachedPatterns = 256

// patterns is shared by every connection the process opens.
var patterns = xsync.NewMapOf[string, *regexp.Regexp]()

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if patterns.Size() >= maxCachedPatterns {
		patterns.Clear()
	}
	actual, _ := patterns.LoadOrStore(pattern, re)
	return actual, nil
}

// matchRegexp implements the SQL function regexp(pattern, value) that
// backs the REGEXP operator. SQL NULL never matches; numbers are matched
// against their decimal text.
func matchRegexp(pattern, value any) (bool, error) {
	var p string
	switch x := pattern.(type) {
	case string:
		p = x
	case []byte:
		p = string(x)
	default:
		return false, fmt.Errorf("regexp: pattern must be text, got %T", pattern)
	}

	var subject string
	switch x := value.(type) {
	case nil:
		return false, nil
	case string:
		subject = x
	case []byte:
		subject = string(x)
	case int64:
		subject = strconv.FormatInt(x, 10)
	case float64:
		subject = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		subject = strconv.FormatBool(x)
	default:
		subject = fmt.Sprint(x)
	}

	re, err := compilePattern(p)
	if err != nil {
		return false, fmt.Errorf("regexp: %w", err)
	}
	return re.MatchString(subject), nil
}
