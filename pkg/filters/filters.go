package filters

import (
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/pkg/types"
)

// includeAll is the include-list value that disables include filtering.
const includeAll = "all"

// NoFilter allows all containers through.
func NoFilter(string) bool {
	return true
}

// FilterByInclusion restricts checks to names in the include list. An empty
// list or the single entry "all" means no restriction.
func FilterByInclusion(include []string, baseFilter types.Filter) types.Filter {
	if len(include) == 0 || (len(include) == 1 && include[0] == includeAll) {
		return baseFilter
	}

	return func(name string) bool {
		if !slices.Contains(include, name) {
			logrus.WithField("container", name).
				Debug("Container not in include list, skipping")

			return false
		}

		return baseFilter(name)
	}
}

// FilterByExclusion skips names in the exclude list, regardless of the
// include policy.
func FilterByExclusion(exclude []string, baseFilter types.Filter) types.Filter {
	if len(exclude) == 0 {
		return baseFilter
	}

	return func(name string) bool {
		if slices.Contains(exclude, name) {
			logrus.WithField("container", name).
				Debug("Container in exclude list, skipping")

			return false
		}

		return baseFilter(name)
	}
}

// BuildFilter composes the container-selection policy from include and
// exclude name lists and returns the filter along with a description used
// in the startup message.
func BuildFilter(include, exclude []string) (types.Filter, string) {
	filter := FilterByInclusion(include, NoFilter)
	filter = FilterByExclusion(exclude, filter)

	var sb strings.Builder

	sb.WriteString("Checking all containers")

	if len(include) > 0 && !(len(include) == 1 && include[0] == includeAll) {
		sb.Reset()
		sb.WriteString("Checking containers: ")
		sb.WriteString(strings.Join(include, ", "))
	}

	if len(exclude) > 0 {
		sb.WriteString(", excluding: ")
		sb.WriteString(strings.Join(exclude, ", "))
	}

	return filter, sb.String()
}
