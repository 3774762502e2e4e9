package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resplitFixture = `# combined-changes
# Category: feature
# Priority: medium
# Generated: 2026-01-01T00:00:00Z
# Files: widget.go, gadget.go
# Description: two unrelated additions bundled together
diff --git a/widget.go b/widget.go
new file mode 100644
--- /dev/null
+++ b/widget.go
@@ -0,0 +1,1 @@
+func Widget() string { return "widget" }
diff --git a/gadget.go b/gadget.go
new file mode 100644
--- /dev/null
+++ b/gadget.go
@@ -0,0 +1,1 @@
+func Gadget() string { return "gadget" }
`

func TestRunResplit_SplitsTargetPatchAndLeavesDirectoryNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00_combined_changes.patch"), []byte(resplitFixture), 0o644))

	oldTarget, oldMax, oldPatch := targetSize, maxPatches, resplitTargetPatch
	defer func() { targetSize, maxPatches, resplitTargetPatch = oldTarget, oldMax, oldPatch }()
	targetSize, maxPatches, resplitTargetPatch = 10, 0, "00_combined_changes.patch"

	cmd := resplitCmd
	cmd.SetContext(context.Background())
	err := runResplit(cmd, []string{dir})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "00_combined_changes.patch"))
	assert.True(t, os.IsNotExist(statErr), "original patch file should be removed after a successful resplit")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	foundResplitDir := false
	for _, e := range entries {
		if e.IsDir() {
			foundResplitDir = true
		}
	}
	assert.True(t, foundResplitDir, "resplit should write a resplit_<timestamp> subdirectory")
}
