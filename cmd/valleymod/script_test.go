// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"valleymod": Execute,
	})
}

// TestScripts runs the end-to-end scripts in testdata/script against the
// valleymod binary built into the test executable.
func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", env.WorkDir+"/.config")
			env.Setenv("VALLEYMOD_GAME_PATH", env.WorkDir+"/game")
			env.Setenv("VALLEYMOD_STATE_PATH", env.WorkDir+"/state.toml")
			// Nothing listens here; catalog lookups fail fast.
			env.Setenv("VALLEYMOD_CATALOG_BASE_URL", "http://127.0.0.1:1")
			env.Setenv("VALLEYMOD_CATALOG_TIMEOUT", "2s")
			return nil
		},
	})
}
