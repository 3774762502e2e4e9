package depanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchsplit/patchsplit/internal/model"
)

// TestAnalyze_BareCallResolvesToCallChainEdge covers the dominant
// intra-package dependency shape: a bare call "Helper()" in one change to a
// function defined by another change in the same directory, with no
// selector or import involved.
func TestAnalyze_BareCallResolvesToCallChainEdge(t *testing.T) {
	caller := model.Change{
		ID: "pkg/caller.go:hunk_0", File: "pkg/caller.go", Kind: model.ChangeAdd,
		Language: model.LangGo, StartLine: 1,
		RawHunk: "@@ -0,0 +1,3 @@\n+package pkg\n+\n+func Run() string { return Helper() }\n",
	}
	helper := model.Change{
		ID: "pkg/helper.go:hunk_0", File: "pkg/helper.go", Kind: model.ChangeAdd,
		Language: model.LangGo, StartLine: 1,
		RawHunk: "@@ -0,0 +1,3 @@\n+package pkg\n+\n+func Helper() string { return \"helped\" }\n",
	}

	a := New()
	extractions := a.Extract([]model.Change{caller, helper})
	deps := a.Analyze(extractions)

	require.NotEmpty(t, deps, "expected a dependency edge for the bare call to Helper")

	var found *model.Dependency
	for i := range deps {
		if deps[i].Source == caller.ID && deps[i].Target == helper.ID {
			found = &deps[i]
		}
	}
	require.NotNil(t, found, "expected an edge from caller.go to helper.go")
	assert.Equal(t, model.DepCallChain, found.Kind)
}

// TestAnalyze_SelectorCallStillDefinesUses guards against the call_chain
// classification leaking onto the pre-existing selector-based usage shape:
// a qualified call alias.Name must still resolve as defines_uses/modifies_uses.
func TestAnalyze_SelectorCallStillDefinesUses(t *testing.T) {
	user := model.Change{
		ID: "pkg/user.go:hunk_0", File: "pkg/user.go", Kind: model.ChangeAdd,
		Language: model.LangGo, StartLine: 1,
		RawHunk: "@@ -0,0 +1,5 @@\n+package pkg\n+\n+import \"pkg/util\"\n+\n+func Run() string { return util.Format() }\n",
	}
	util := model.Change{
		ID: "util/util.go:hunk_0", File: "util/util.go", Kind: model.ChangeAdd,
		Language: model.LangGo, StartLine: 1,
		RawHunk: "@@ -0,0 +1,3 @@\n+package util\n+\n+func Format() string { return \"x\" }\n",
	}

	a := New()
	extractions := a.Extract([]model.Change{user, util})
	deps := a.Analyze(extractions)

	var found *model.Dependency
	for i := range deps {
		if deps[i].Source == user.ID && deps[i].Target == util.ID && deps[i].Kind != model.DepImport {
			found = &deps[i]
		}
	}
	require.NotNil(t, found, "expected a usage edge from user.go to util.go")
	assert.Equal(t, model.DepDefinesUses, found.Kind)
}

// TestAnalyze_PythonBareCallResolvesToCallChainEdge mirrors the Go bare-call
// case for Python: a module-level function call with no attribute access
// and no matching import, resolved against another change's def in the
// same directory.
func TestAnalyze_PythonBareCallResolvesToCallChainEdge(t *testing.T) {
	caller := model.Change{
		ID: "pkg/caller.py:hunk_0", File: "pkg/caller.py", Kind: model.ChangeAdd,
		Language: model.LangPython, StartLine: 1,
		RawHunk: "@@ -0,0 +1,2 @@\n+def run():\n+    return helper()\n",
	}
	helper := model.Change{
		ID: "pkg/helper.py:hunk_0", File: "pkg/helper.py", Kind: model.ChangeAdd,
		Language: model.LangPython, StartLine: 1,
		RawHunk: "@@ -0,0 +1,2 @@\n+def helper():\n+    return 'helped'\n",
	}

	a := New()
	extractions := a.Extract([]model.Change{caller, helper})
	deps := a.Analyze(extractions)

	var found *model.Dependency
	for i := range deps {
		if deps[i].Source == caller.ID && deps[i].Target == helper.ID {
			found = &deps[i]
		}
	}
	require.NotNil(t, found, "expected an edge from caller.py to helper.py")
	assert.Equal(t, model.DepCallChain, found.Kind)
}

func TestMergeSymbols_OrdersDefinitionsBeforeUsages(t *testing.T) {
	caller := model.Change{
		ID: "pkg/caller.go:hunk_0", File: "pkg/caller.go", Kind: model.ChangeAdd,
		Language: model.LangGo, StartLine: 1,
		RawHunk: "@@ -0,0 +1,3 @@\n+package pkg\n+\n+func Run() string { return Helper() }\n",
	}

	a := New()
	extractions := a.Extract([]model.Change{caller})
	merged := MergeSymbols(extractions)

	require.Len(t, merged, 1)
	require.NotEmpty(t, merged[0].Symbols)
	assert.Equal(t, model.RoleDefinition, merged[0].Symbols[0].Role)
}
