package opencl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguageVersion(t *testing.T) {
	cases := []struct {
		in    string
		major int
		minor int
	}{
		{"CL1.0", 1, 0},
		{"CL1.2", 1, 2},
		{"OpenCL C 2.0", 2, 0},
		{"OpenCL 2.1 AMD-APP (3075.13)", 2, 1},
		{"OpenCL C 3.0", 3, 0},
	}
	for _, c := range cases {
		major, minor, err := ParseLanguageVersion(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.major, major, c.in)
		assert.Equal(t, c.minor, minor, c.in)
	}
}

func TestParseLanguageVersionRejectsUnsupported(t *testing.T) {
	_, _, err := ParseLanguageVersion("CL4.0")
	assert.Error(t, err)
}

func TestParseLanguageVersionRejectsGarbage(t *testing.T) {
	_, _, err := ParseLanguageVersion("not a version string")
	assert.Error(t, err)
}

func TestBuildOptionsFor(t *testing.T) {
	assert.Equal(t, "-cl-std=CL1.2", buildOptionsFor("CL1.2"))
	assert.Equal(t, "", buildOptionsFor(""))
	assert.Equal(t, "", buildOptionsFor("garbage"))
}
