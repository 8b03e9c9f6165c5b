package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_Validate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoad_RepoConfig(t *testing.T) {
	tn, err := Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, 60, tn.FrameRateHz)
	assert.Equal(t, 5, tn.Substance.MaxStack)
	assert.Greater(t, tn.MinutesPerSecond("playa"), tn.MinutesPerSecond("camp"))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_delta_seconds: 0.25\nsubstance:\n  max_stack: 3\n"), 0o644))

	tn, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 0.25, tn.MaxDeltaSeconds)
	assert.Equal(t, 3, tn.Substance.MaxStack)
	assert.Equal(t, Defaults().Player.BaseSpeed, tn.Player.BaseSpeed)
}

func TestLoad_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("max_delta_seconds: -1\n"), 0o644))
	_, err := Load(p)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestMinutesPerSecond_UnknownProfileFallsBack(t *testing.T) {
	tn := Defaults()
	assert.Equal(t, tn.TimeProfiles["playa"], tn.MinutesPerSecond("moon"))
}

func TestDigest_Stable(t *testing.T) {
	a, b := Defaults(), Defaults()
	assert.Equal(t, a.Digest(), b.Digest())
	b.MaxDeltaSeconds = 2
	assert.NotEqual(t, a.Digest(), b.Digest())
}
