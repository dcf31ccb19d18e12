package mapper

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/orneryd/gpurt/pkg/gputypes"
)

// ParamTypeFingerprint hashes an ordered parameter-kind list into a
// stable string: equivalent ABI shapes (e.g. two structs with identical
// member layouts) must hash equally, since the cache key treats them as
// interchangeable. The hash is over each kind's Name(), which renders
// struct members in declared order and primitives by width and
// signedness as a canonical string.
func ParamTypeFingerprint(params []gputypes.ParameterKind) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name())
	}
	sum := xxhash.Sum64String(b.String())
	return strconv.FormatUint(sum, 16)
}

// SpecializationHash hashes a Specialization record into a stable
// string. Map iteration order is not stable in Go, so keys are sorted
// before hashing.
func SpecializationHash(spec gputypes.Specialization) string {
	keys := make([]string, 0, len(spec.Constants))
	for k := range spec.Constants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strconv.Itoa(spec.OptimizationLevel))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(spec.Constants[k])
	}
	sum := xxhash.Sum64String(b.String())
	return strconv.FormatUint(sum, 16)
}
