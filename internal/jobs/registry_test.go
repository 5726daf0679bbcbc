package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGetMetadata(t *testing.T) {
	reg := NewRegistry(nil, map[string]bool{})
	jobType := TypeOf("registry_sample")
	err := reg.Register(Metadata{Type: jobType, Enabled: true}, func() Handler { return BaseHandler{} })
	require.NoError(t, err)

	meta, ok := reg.GetMetadata(jobType)
	require.True(t, ok)
	assert.True(t, meta.Enabled)
}

func TestRegistryRejectsRegistrationAfterFreeze(t *testing.T) {
	reg := NewRegistry(nil, map[string]bool{})
	reg.Freeze()

	err := reg.Register(Metadata{Type: TypeOf("late_comer")}, func() Handler { return BaseHandler{} })
	require.Error(t, err)
	var dup *DuplicateHandlerError
	assert.ErrorAs(t, err, &dup)
}

func TestRegistryLazilyConstructsHandlerOnce(t *testing.T) {
	reg := NewRegistry(nil, map[string]bool{})
	jobType := TypeOf("lazy_sample")
	calls := 0
	require.NoError(t, reg.Register(Metadata{Type: jobType}, func() Handler {
		calls++
		return BaseHandler{}
	}))
	reg.Freeze()

	_, ok := reg.GetHandler(jobType)
	require.True(t, ok)
	_, ok = reg.GetHandler(jobType)
	require.True(t, ok)
	assert.Equal(t, 1, calls)
}

func TestRegistryValidateDependenciesFlagsUnresolvedCapability(t *testing.T) {
	reg := NewRegistry(nil, map[string]bool{"database": true})
	jobType := TypeOf("whatsapp_sample")
	require.NoError(t, reg.Register(Metadata{
		Type:         jobType,
		Capabilities: Capabilities{RequiresWhatsApp: true},
	}, func() Handler { return BaseHandler{} }))
	reg.Freeze()

	issues := reg.ValidateDependencies()
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "whatsapp")
}

func TestRegistryListEnabledOnlyReturnsEnabled(t *testing.T) {
	reg := NewRegistry(nil, map[string]bool{})
	require.NoError(t, reg.Register(Metadata{Type: TypeOf("enabled_one"), Enabled: true}, func() Handler { return BaseHandler{} }))
	require.NoError(t, reg.Register(Metadata{Type: TypeOf("disabled_one"), Enabled: false}, func() Handler { return BaseHandler{} }))
	reg.Freeze()

	enabled := reg.ListEnabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "enabled_one", enabled[0].Type.String())
}
