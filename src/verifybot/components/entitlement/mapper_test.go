package entitlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testMapper() *Mapper {
	return NewMapper(map[string]map[string]string{
		"Gumroad": {
			"P1": "role-fan",
			"p1": "role-other",
		},
	})
}

func TestMapperPlatformCaseInsensitive(t *testing.T) {
	m := testMapper()

	roleID, ok := m.Map("GUMROAD", "P1")
	assert.True(t, ok)
	assert.Equal(t, "role-fan", roleID)
}

func TestMapperProductCaseSensitive(t *testing.T) {
	m := testMapper()

	roleID, ok := m.Map("gumroad", "p1")
	assert.True(t, ok)
	assert.Equal(t, "role-other", roleID)

	_, ok = m.Map("gumroad", "P1 ")
	assert.False(t, ok, "no trimming or wildcards")
}

func TestMapperMissIsNotAnError(t *testing.T) {
	m := testMapper()

	_, ok := m.Map("gumroad", "unmapped")
	assert.False(t, ok)

	_, ok = m.Map("jinxxy", "P1")
	assert.False(t, ok)
}

func TestMapperCount(t *testing.T) {
	m := testMapper()
	assert.Equal(t, 2, m.Count("gumroad"))
	assert.Equal(t, 0, m.Count("jinxxy"))
}
