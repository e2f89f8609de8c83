package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/studyflow/internal/classification"
	"github.com/Veraticus/studyflow/internal/model"
)

func TestLoadFile(t *testing.T) {
	rs, err := LoadFile(filepath.Join("testdata", "radiology.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "2024-06", rs.Version)

	var order []string
	for _, cr := range rs.Rules() {
		order = append(order, cr.Category)
	}
	assert.Equal(t, []string{"CT Spine", "CTA Head Neck", "CT Abdomen Pelvis", "CT Head", "XR Knee"}, order)
	assert.Equal(t, 6, rs.RuleCount())

	values := rs.Values()
	require.Len(t, values, 9)
	assert.Equal(t, "CT Spine", values[0].Category)
	assert.Equal(t, "PET CT", values[8].Category)
	assert.InDelta(t, 1.74, rs.ValueOf("CT Abdomen Pelvis"), 1e-9)

	category, ok := rs.Direct("ct head wo")
	assert.True(t, ok)
	assert.Equal(t, "CT Head", category)

	assert.Equal(t, "XR Knee", classification.Classify("XR Right Knee", rs).Category)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "empty document", doc: ""},
		{name: "only values", doc: "category_values:\n  XR Other: 0.2\n"},
		{name: "null sections", doc: "direct_lookups:\nclassification_rules:\ncategory_values:\n"},
		{name: "not a mapping", doc: "- a\n- b\n", wantErr: true},
		{name: "unknown key", doc: "categories:\n  XR Other: 0.2\n", wantErr: true},
		{name: "value not a number", doc: "category_values:\n  XR Other: cheap\n", wantErr: true},
		{name: "rules not a list", doc: "classification_rules:\n  CT Head: ct\n", wantErr: true},
		{name: "negative value", doc: "category_values:\n  XR Other: -1\n", wantErr: true},
		{name: "rule without keywords", doc: "classification_rules:\n  CT Head:\n    - excluded: [neck]\n", wantErr: true},
		{name: "malformed yaml", doc: "category_values: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.doc))
			if tt.wantErr {
				require.ErrorIs(t, err, model.ErrInvalidRuleSet)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, rs.Version, "a content hash version is derived")
		})
	}
}

func TestParse_DerivedVersionTracksContent(t *testing.T) {
	a, err := Parse([]byte("category_values:\n  XR Other: 0.2\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("category_values:\n  XR Other: 0.3\n"))
	require.NoError(t, err)
	c, err := Parse([]byte("category_values:\n  XR Other: 0.2\n"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Version, b.Version)
	assert.Equal(t, a.Version, c.Version)
}

func writeRules(t *testing.T, path, doc string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}
