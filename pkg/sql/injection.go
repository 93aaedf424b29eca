package sql

import (
	"sort"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value rejected by the injection screen.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint; empty for character-class rejections
	ParamName   string
	ParamValue  any
}

// identifierBreakers never appear in a legitimate catalog or schema name and
// would break out of a session header or search_path value.
const identifierBreakers = ";'\"\\\r\n\t\x00"

// CheckParameterForInjection screens a value that is passed to the engine
// outside the query text, such as a catalog or schema name. Only string
// values are checked. Returns nil when the value is clean.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	if strings.ContainsAny(strValue, identifierBreakers) {
		return &InjectionCheckResult{
			IsSQLi:     true,
			ParamName:  paramName,
			ParamValue: value,
		}
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			ParamName:   paramName,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckAllParameters screens every value and returns the failures ordered by
// parameter name.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for name, value := range params {
		if result := CheckParameterForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ParamName < results[j].ParamName })
	return results
}
