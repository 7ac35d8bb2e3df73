package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDurations(t *testing.T) {
	table := DefaultDurations()

	assert.Equal(t, 180*time.Minute, table.For("Volume brasileiro"))
	assert.Equal(t, 90*time.Minute, table.For("manutencao"))
	assert.Equal(t, 60*time.Minute, table.For("remocao"))
	assert.Equal(t, DefaultDuration, table.For("algo novo"))
}

func TestDurationsAccentInsensitive(t *testing.T) {
	table := DefaultDurations()
	assert.Equal(t, table.For("manutencao"), table.For("Manutenção"))
	assert.Equal(t, table.For("remocao"), table.For("Remoção"))
}

func TestParseDurationsOverride(t *testing.T) {
	table, err := ParseDurations("manutencao=75m, design de sobrancelha=45m")
	require.NoError(t, err)

	assert.Equal(t, 75*time.Minute, table.For("manutencao"))
	assert.Equal(t, 45*time.Minute, table.For("Design de Sobrancelha"))
	// untouched defaults survive the merge
	assert.Equal(t, 180*time.Minute, table.For("volume brasileiro"))
}

func TestParseDurationsRejectsBadSpec(t *testing.T) {
	_, err := ParseDurations("manutencao")
	require.Error(t, err)

	_, err = ParseDurations("manutencao=fast")
	require.Error(t, err)

	_, err = ParseDurations("manutencao=-30m")
	require.Error(t, err)
}
