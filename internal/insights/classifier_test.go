package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		name string
		text string
		want Classification
	}{
		{
			name: "named dopamine precursor",
			text: "Carbidopa/Levodopa extended release",
			want: Classification{"Dopamine Precursor Replenishment", "Small molecule", "Dopamine synthesis"},
		},
		{
			name: "deep brain stimulation device",
			text: "Bilateral DBS of the subthalamic nucleus",
			want: Classification{"Neuromodulation", "Device", "Brain"},
		},
		{
			name: "case insensitive",
			text: "RASAGILINE 1mg",
			want: Classification{"MAO-B Inhibition", "Small molecule", "MAO-B"},
		},
		{
			name: "pathway target",
			text: "Anti-alpha synuclein infusion",
			want: Classification{"Alpha-Synuclein Targeting", "Multiple", "α-synuclein"},
		},
		{
			name: "word boundary respected",
			text: "scalpel handling study",
			want: Unknown,
		},
		{
			name: "no match",
			text: "Compound XYZ-123",
			want: Unknown,
		},
		{
			name: "empty text",
			text: "",
			want: Unknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.text))
		})
	}
}

func TestClassifyTableOrderWins(t *testing.T) {
	c := NewClassifier()

	// "levodopa versus placebo" matches both the dopamine class and the
	// control class; the earlier table entry wins.
	got := c.Classify("Levodopa versus placebo")
	assert.Equal(t, "Dopamine Precursor Replenishment", got.Mechanism)
}

func TestClassifyCustomTable(t *testing.T) {
	c := NewClassifier(pat(`widget`, "Widget Therapy", "Device", "Widgets"))

	assert.Equal(t, "Widget Therapy", c.Classify("implantable widget").Mechanism)
	assert.Equal(t, Unknown, c.Classify("levodopa"), "custom table replaces the default")
}

func TestEmergingTechnologies(t *testing.T) {
	c := NewClassifier()
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	records := []*trials.Record{
		{NCTID: "NCT1", Interventions: "Levodopa", StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{NCTID: "NCT2", Interventions: "Carbidopa-levodopa", StartDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{NCTID: "NCT3", Interventions: "Deep brain stimulation", StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{NCTID: "NCT4", Interventions: "Compound XYZ-123"},
	}

	techs := c.EmergingTechnologies(records, now)
	require.Len(t, techs, 2, "unknown mechanisms are excluded")

	dopamine := techs[0]
	assert.Equal(t, "Dopamine Precursor Replenishment", dopamine.Mechanism)
	assert.Equal(t, 2, dopamine.TrialCount)
	assert.Equal(t, 1, dopamine.RecentCount, "only the 2026 trial is recent")
	assert.Equal(t, "2026-01-01", dopamine.LatestStart)

	assert.Equal(t, "Neuromodulation", techs[1].Mechanism)
	assert.Equal(t, 1, techs[1].TrialCount)
}
