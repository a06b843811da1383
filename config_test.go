package kvbench

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPropertiesTypedGetters(t *testing.T) {
	p := Properties{
		"count":    "42",
		"ratio":    "0.25",
		"enabled":  "true",
		"duration": "1.5",
		"bad":      "not-a-number",
	}

	i, err := p.GetInt64("count", 0)
	require.NoError(t, err)
	require.Equal(t, int64(42), i)
	i, err = p.GetInt64("missing", 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), i)
	_, err = p.GetInt64("bad", 0)
	require.Error(t, err)

	f, err := p.GetFloat64("ratio", 0)
	require.NoError(t, err)
	require.Equal(t, 0.25, f)
	_, err = p.GetFloat64("bad", 0)
	require.Error(t, err)

	b, err := p.GetBool("enabled", false)
	require.NoError(t, err)
	require.True(t, b)
	b, err = p.GetBool("missing", true)
	require.NoError(t, err)
	require.True(t, b)
	_, err = p.GetBool("bad", false)
	require.Error(t, err)

	d, err := p.GetSeconds("duration", 0)
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, d)
	d, err = p.GetSeconds("missing", time.Minute)
	require.NoError(t, err)
	require.Equal(t, time.Minute, d)
}

func TestPropertiesGetSecondsRejectsNegative(t *testing.T) {
	p := Properties{"duration": "-1"}
	_, err := p.GetSeconds("duration", 0)
	require.Error(t, err)
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "duration", configErr.Param)
}

func TestLoadProperties(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workload.yaml")
	content := `
recordcount: 1000
readproportion: 0.5
updateproportion: 0.5
requestdistribution: zipfian
table: usertable
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	props, err := LoadProperties(path)
	require.NoError(t, err)
	require.Equal(t, "1000", props.Get(PropertyRecordCount))
	require.Equal(t, "0.5", props.Get(PropertyReadProportion))
	require.Equal(t, "zipfian", props.Get(PropertyRequestDistribution))
	require.Equal(t, "usertable", props.Get(PropertyTableName))
}

func TestLoadPropertiesMissingFile(t *testing.T) {
	_, err := LoadProperties(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
