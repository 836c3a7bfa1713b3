package harness

import (
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// RunGolden executes the scenario file at testdata/scenarios/<name>.yaml
// and compares the snapshot against the golden file testdata/<name>.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunGolden(t *testing.T, name string) {
	t.Helper()

	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	require.Equal(t, name, sc.Name, "scenario name must match its file name")

	snap, err := Run(t, sc)
	require.NoError(t, err)

	g := goldie.New(t)
	g.AssertJson(t, name, snap)
}
